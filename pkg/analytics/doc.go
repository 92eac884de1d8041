// Package analytics records failover, recovery, and health-check events and
// maintains per-chain aggregates: failover counts by provider, average
// recovery time, request success rate, and impact metrics.
//
// Events live in a bounded in-memory ring per chain; a durable store from
// the storage subpackage can be attached for persistence, written to by a
// background worker so the hot path never blocks on I/O. The retention
// subpackage prunes the durable log on a cron schedule.
//
// Operator alerts raised during failover and recovery are kept in a bounded
// AlertLog with explicit resolution.
package analytics
