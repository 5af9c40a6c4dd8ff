package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedHandler(apiKey string) http.Handler {
	return Auth(apiKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestAuthDisabledWhenNoKeyConfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	authedHandler("").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 with auth disabled", rec.Code)
	}
}

func TestAuthBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	r.Header.Set("Authorization", "Bearer sekrit")

	rec := httptest.NewRecorder()
	authedHandler("sekrit").ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 for valid bearer token", rec.Code)
	}
}

func TestAuthAPIKeyHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	r.Header.Set("X-API-Key", "sekrit")

	rec := httptest.NewRecorder()
	authedHandler("sekrit").ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 for valid api key", rec.Code)
	}
}

func TestAuthRejectsMissingAndWrongTokens(t *testing.T) {
	h := authedHandler("sekrit")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec.Code)
	}
}
