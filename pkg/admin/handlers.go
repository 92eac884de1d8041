package admin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Zeus-Eternal/kari-failover/pkg/config"
	"github.com/Zeus-Eternal/kari-failover/pkg/failover"
	"github.com/Zeus-Eternal/kari-failover/pkg/providers"
	"github.com/Zeus-Eternal/kari-failover/pkg/store"
)

// Handler exposes the admin service as a JSON HTTP API.
type Handler struct {
	service *Service
	orch    *failover.Orchestrator
	logger  *slog.Logger
}

// NewHandler creates the admin HTTP handler.
func NewHandler(service *Service, orch *failover.Orchestrator) *Handler {
	return &Handler{
		service: service,
		orch:    orch,
		logger:  slog.Default().With("component", "admin.handler"),
	}
}

// Register mounts the admin routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/configs", h.getConfigs)
	mux.HandleFunc("POST /api/v1/configs", h.putConfig)
	mux.HandleFunc("GET /api/v1/configs/{id}", h.getConfig)
	mux.HandleFunc("PUT /api/v1/configs/{id}", h.putConfigByID)
	mux.HandleFunc("DELETE /api/v1/configs/{id}", h.deleteConfig)
	mux.HandleFunc("POST /api/v1/configs/{id}/toggle", h.toggleConfig)

	mux.HandleFunc("POST /api/v1/chains/{id}/invoke", h.invoke)
	mux.HandleFunc("POST /api/v1/chains/{id}/test", h.testChain)
	mux.HandleFunc("GET /api/v1/chains/{id}/events", h.listEvents)
	mux.HandleFunc("GET /api/v1/chains/{id}/analytics", h.getAnalytics)
	mux.HandleFunc("GET /api/v1/chains/{id}/state", h.getChainState)
	mux.HandleFunc("POST /api/v1/chains/{id}/recovery/reset", h.resetRecovery)

	mux.HandleFunc("GET /api/v1/providers/health", h.providerHealth)

	mux.HandleFunc("GET /api/v1/alerts", h.listAlerts)
	mux.HandleFunc("POST /api/v1/alerts/{id}/resolve", h.resolveAlert)
}

func (h *Handler) getConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.GetConfigs(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, configs)
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	fc, err := h.service.GetConfig(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fc)
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	var fc config.FallbackConfig
	if err := json.NewDecoder(r.Body).Decode(&fc); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
		return
	}
	stored, err := h.service.PutConfig(r.Context(), &fc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) putConfigByID(w http.ResponseWriter, r *http.Request) {
	var fc config.FallbackConfig
	if err := json.NewDecoder(r.Body).Decode(&fc); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
		return
	}
	fc.ID = r.PathValue("id")
	stored, err := h.service.PutConfig(r.Context(), &fc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) deleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteConfig(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
		return
	}
	if err := h.service.ToggleConfig(r.Context(), r.PathValue("id"), body.Enabled); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invoke(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody("failed to read request body"))
		return
	}

	req := &providers.Request{
		ID:      uuid.NewString(),
		Model:   r.URL.Query().Get("model"),
		Payload: payload,
	}
	resp, err := h.orch.Invoke(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) testChain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InjectFailures int `json:"inject_failures"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
			return
		}
	}
	result, err := h.service.TestChain(r.Context(), r.PathValue("id"), body.InjectFailures)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	events, err := h.service.ListEvents(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *Handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetAnalytics(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) getChainState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetChainState(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) resetRecovery(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetRecovery(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) providerHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.GetProviderHealth(r.Context()))
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	unresolvedOnly := r.URL.Query().Get("unresolved") == "true"
	h.writeJSON(w, http.StatusOK, h.service.ListAlerts(r.Context(), unresolvedOnly))
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResolveAlert(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps engine errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var valErr config.ValidationError
	switch {
	case errors.As(err, &valErr):
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": valErr.Errors,
		})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, failover.ErrChainNotFound):
		h.writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, failover.ErrTestInProgress):
		h.writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, failover.ErrConfigDisabled):
		h.writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	case errors.Is(err, failover.ErrChainExhausted):
		h.writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		h.logger.Error("admin request failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
