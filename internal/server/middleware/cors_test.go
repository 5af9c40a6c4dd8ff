package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler(origins []string) http.Handler {
	return CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestCORSReflectsAllowedOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	r.Header.Set("Origin", "https://app.example.com")

	rec := httptest.NewRecorder()
	corsHandler([]string{"https://app.example.com"}).ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q, want the request origin", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("vary = %q, want Origin", got)
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	r.Header.Set("Origin", "https://evil.example.com")

	rec := httptest.NewRecorder()
	corsHandler([]string{"https://app.example.com"}).ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want empty for unknown origin", got)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want request still served", rec.Code)
	}
}

func TestCORSWildcardAndPreflight(t *testing.T) {
	r := httptest.NewRequest(http.MethodOptions, "/api/markets", nil)
	r.Header.Set("Origin", "https://anything.example.com")

	rec := httptest.NewRecorder()
	corsHandler([]string{"*"}).ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anything.example.com" {
		t.Errorf("allow-origin = %q, want reflected origin under wildcard", got)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}
