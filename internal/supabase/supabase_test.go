package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vasilisp/postgen/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "anon-key")
}

func TestConversation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/conversations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "eq.c1" {
			t.Errorf("unexpected id filter %q", got)
		}
		if r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Errorf("missing credentials: %v", r.Header)
		}
		if r.Header.Get("Accept") != singleObject {
			t.Errorf("unexpected accept %q", r.Header.Get("Accept"))
		}
		_, _ = w.Write([]byte(`{
			"id": "c1",
			"title": "Remote work",
			"status": "waiting_for_approval",
			"summary": null,
			"state": {"writer_complete": true},
			"user_id": null,
			"created_at": "2025-03-01T09:30:00.123456+00:00",
			"updated_at": "2025-03-01T09:31:00+00:00"
		}`))
	})

	got, err := c.Conversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if got.ID != "c1" || got.Status != "waiting_for_approval" || got.Summary != "" {
		t.Errorf("unexpected conversation %+v", got)
	}
	if !got.HasState() {
		t.Error("expected state payload")
	}
	if got.CreatedAt.IsZero() || got.CreatedAt.Nanosecond() != 123456000 {
		t.Errorf("unexpected created_at %v", got.CreatedAt)
	}
}

func TestConversationNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","details":"The result contains 0 rows","hint":null,"message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	_, err := c.Conversation(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "JSON object requested, multiple (or no) rows returned" {
		t.Errorf("message not passed through: %v", err)
	}
}

func TestQueryFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"42501","message":"permission denied for table conversations"}`))
	})

	_, err := c.Conversation(context.Background(), "c1")
	if err == nil || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected non-not-found error, got %v", err)
	}
	if got := err.Error(); got != "conversation c1: permission denied for table conversations" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestNonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	_, err := c.Messages(context.Background(), "c1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "upstream unavailable" || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("conversation_id") != "eq.c1" || q.Get("order") != "created_at.asc" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`[
			{"id":"m1","conversation_id":"c1","role":"user","content":"Hi\nthere","agent_name":null,"created_at":"2025-03-01T09:30:00+00:00"},
			{"id":"m2","conversation_id":"c1","role":"assistant","content":"Draft","agent_name":"writer","created_at":"2025-03-01T09:30:05+00:00"}
		]`))
	})

	got, err := c.Messages(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(got) != 2 || got[0].Content != "Hi\nthere" || got[0].AgentName != "" || got[1].AgentName != "writer" {
		t.Errorf("unexpected messages %+v", got)
	}
}

func TestMessagesEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	got, err := c.Messages(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty slice, got %#v", got)
	}
}

func TestConversations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("order") != "created_at.desc" || q.Get("limit") != "50" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(`[{"id":"c2","title":null,"status":"in_progress","created_at":"2025-03-02T00:00:00Z","updated_at":"2025-03-02T00:00:00Z"}]`))
	})

	got, err := c.Conversations(context.Background(), store.DefaultListLimit)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c2" || got[0].Title != "" {
		t.Errorf("unexpected list %+v", got)
	}
}

func TestZonelessTimestamps(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "c1",
			"title": "Remote work",
			"status": "completed",
			"created_at": "2025-03-01T09:30:00.123456",
			"updated_at": "2025-03-01T09:31:00"
		}`))
	})

	got, err := c.Conversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if got.CreatedAt.Minute() != 30 || got.CreatedAt.Nanosecond() != 123456000 || got.UpdatedAt.Minute() != 31 {
		t.Errorf("unexpected timestamps %v %v", got.CreatedAt, got.UpdatedAt)
	}
}
