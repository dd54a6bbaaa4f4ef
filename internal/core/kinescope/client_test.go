package kinescope

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AsliddinWeb/online-course-platform/config"
)

func TestGetVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/vid-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"vid-123","title":"Intro","status":"done","duration":754.2,"play_link":"https://kinescope.io/vid-123"}}`))
	}))
	defer server.Close()

	client := NewClient(config.KinescopeConfig{APIKey: "test-key", BaseURL: server.URL})

	video, err := client.GetVideo(context.Background(), "vid-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if video.Title != "Intro" {
		t.Errorf("unexpected title %q", video.Title)
	}
	if video.Duration != 754.2 {
		t.Errorf("unexpected duration %v", video.Duration)
	}
}

func TestVideoDurationTruncatesToSeconds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"vid-1","duration":90.9}}`))
	}))
	defer server.Close()

	client := NewClient(config.KinescopeConfig{APIKey: "k", BaseURL: server.URL})

	seconds, err := client.VideoDuration(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seconds != 90 {
		t.Errorf("expected 90, got %d", seconds)
	}
}

func TestGetVideoAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"video not found"}}`))
	}))
	defer server.Close()

	client := NewClient(config.KinescopeConfig{APIKey: "k", BaseURL: server.URL})

	if _, err := client.GetVideo(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestEmbedURL(t *testing.T) {
	if got := EmbedURL("abc"); got != "https://kinescope.io/embed/abc" {
		t.Errorf("unexpected embed url %q", got)
	}
}
