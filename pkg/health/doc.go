// Package health actively probes upstream providers and scores their
// fitness for traffic.
//
// A Monitor runs one probe loop per configured health check, either pinging
// the provider's health endpoint or sending a synthetic invocation. Probe
// results pass through hysteresis thresholds so one slow response does not
// flip a provider's status. Live call outcomes reported by the orchestrator
// feed a rolling window that the composite score blends with the probe
// status, so eligibility reflects both synthetic and real traffic.
package health
