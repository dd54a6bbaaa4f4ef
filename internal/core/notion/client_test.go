package notion

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AsliddinWeb/online-course-platform/config"
)

func newTestClient(serverURL string) *Client {
	client := NewClient(config.NotionConfig{APIKey: "secret", Version: "2022-06-28"}, nil, slog.New(slog.DiscardHandler))
	client.baseURL = serverURL
	return client
}

func TestGetPageContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Notion-Version"); got != "2022-06-28" {
			t.Errorf("unexpected version header %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{
			"results": [
				{"id": "b1", "type": "heading_1", "has_children": false,
				 "heading_1": {"rich_text": [{"plain_text": "Lesson goals"}]}},
				{"id": "b2", "type": "paragraph", "has_children": false,
				 "paragraph": {"rich_text": [{"plain_text": "First "}, {"plain_text": "part"}]}}
			],
			"has_more": false
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	content, err := client.GetPageContent(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(content.Blocks))
	}
	if content.Blocks[0].Text != "Lesson goals" {
		t.Errorf("unexpected heading text %q", content.Blocks[0].Text)
	}
	if content.Blocks[1].Text != "First part" {
		t.Errorf("rich text segments not joined, got %q", content.Blocks[1].Text)
	}
}

func TestGetPageContentPagination(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`{
				"results": [{"id": "b1", "type": "paragraph", "has_children": false,
					"paragraph": {"rich_text": [{"plain_text": "one"}]}}],
				"has_more": true,
				"next_cursor": "cur-2"
			}`))
			return
		}
		if got := r.URL.Query().Get("start_cursor"); got != "cur-2" {
			t.Errorf("unexpected cursor %q", got)
		}
		_, _ = w.Write([]byte(`{
			"results": [{"id": "b2", "type": "paragraph", "has_children": false,
				"paragraph": {"rich_text": [{"plain_text": "two"}]}}],
			"has_more": false
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	content, err := client.GetPageContent(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.Blocks) != 2 {
		t.Fatalf("expected 2 blocks across pages, got %d", len(content.Blocks))
	}
	if calls != 2 {
		t.Errorf("expected 2 API calls, got %d", calls)
	}
}

func TestGetPageContentAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"object":"error","status":404}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.GetPageContent(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
