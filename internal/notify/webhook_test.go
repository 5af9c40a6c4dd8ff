package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDiscordSenderPostsAnnouncement(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	if err := sender.Send(context.Background(), "Market resolved", "rain-tomorrow resolved yes_won"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if want := "**Market resolved**\nrain-tomorrow resolved yes_won"; got["content"] != want {
		t.Errorf("content = %q, want %q", got["content"], want)
	}
}

func TestDiscordSenderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "webhook disabled", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("Send returned nil for 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "webhook disabled") {
		t.Errorf("error %q does not carry status and body", err)
	}
}
