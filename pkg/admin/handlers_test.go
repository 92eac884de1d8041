package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler(t *testing.T) (*http.ServeMux, *Service) {
	t.Helper()
	svc, orch := newTestService(t)
	mux := http.NewServeMux()
	NewHandler(svc, orch).Register(mux)
	return mux, svc
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_PutAndGetConfig(t *testing.T) {
	mux, _ := newTestHandler(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/configs", chatFallback("cfg-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/configs/cfg-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var fc struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if fc.ID != "cfg-1" || fc.Name != "Chat" {
		t.Errorf("Expected stored config returned, got %+v", fc)
	}
}

func TestHandler_PutConfigValidationFailure(t *testing.T) {
	mux, _ := newTestHandler(t)

	bad := chatFallback("cfg-1")
	bad.Chains[0].Providers = nil

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/configs", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "providers") {
		t.Errorf("Expected field errors in body, got %s", rec.Body.String())
	}
}

func TestHandler_PutConfigMalformedBody(t *testing.T) {
	mux, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/configs", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestHandler_GetConfigNotFound(t *testing.T) {
	mux, _ := newTestHandler(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/configs/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandler_Invoke(t *testing.T) {
	mux, _ := newTestHandler(t)
	doJSON(t, mux, http.MethodPost, "/api/v1/configs", chatFallback("cfg-1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chains/chat/invoke", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Provider string `json:"provider"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Provider != "primary" {
		t.Errorf("Expected primary to serve the call, got %q", resp.Provider)
	}
}

func TestHandler_InvokeUnknownChain(t *testing.T) {
	mux, _ := newTestHandler(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/chains/missing/invoke", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandler_InvokeDisabledConfig(t *testing.T) {
	mux, _ := newTestHandler(t)
	doJSON(t, mux, http.MethodPost, "/api/v1/configs", chatFallback("cfg-1"))

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/configs/cfg-1/toggle", map[string]bool{"enabled": false})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/chains/chat/invoke", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 while disabled, got %d", rec.Code)
	}
}

func TestHandler_DeleteConfig(t *testing.T) {
	mux, _ := newTestHandler(t)
	doJSON(t, mux, http.MethodPost, "/api/v1/configs", chatFallback("cfg-1"))

	rec := doJSON(t, mux, http.MethodDelete, "/api/v1/configs/cfg-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodDelete, "/api/v1/configs/cfg-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for repeated delete, got %d", rec.Code)
	}
}

func TestHandler_ChainState(t *testing.T) {
	mux, _ := newTestHandler(t)
	doJSON(t, mux, http.MethodPost, "/api/v1/configs", chatFallback("cfg-1"))

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/chains/chat/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var snap struct {
		ChainID        string `json:"chain_id"`
		Status         string `json:"status"`
		ActiveProvider string `json:"active_provider"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap.ChainID != "chat" || snap.ActiveProvider != "primary" {
		t.Errorf("Expected nominal chain state, got %+v", snap)
	}
}

func TestHandler_ListEventsRejectsBadLimit(t *testing.T) {
	mux, _ := newTestHandler(t)
	doJSON(t, mux, http.MethodPost, "/api/v1/configs", chatFallback("cfg-1"))

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/chains/chat/events?limit=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative limit, got %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/v1/chains/chat/events?limit=nope", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-numeric limit, got %d", rec.Code)
	}
}

func TestHandler_TestChainUnknown(t *testing.T) {
	mux, _ := newTestHandler(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/chains/missing/test", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandler_AlertRoutes(t *testing.T) {
	mux, svc := newTestHandler(t)

	alert := svc.recorder.Alerts().Raise("chat", "warning", "failover from primary")

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/alerts?unresolved=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), alert.ID) {
		t.Errorf("Expected raised alert listed, got %s", rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/resolve", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
}
