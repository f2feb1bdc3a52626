package store

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 3, 1, 9, 30, 0, 123456000, time.UTC)
	for _, s := range []string{
		"2025-03-01T09:30:00.123456Z",
		"2025-03-01T09:30:00.123456+00:00",
		"2025-03-01T09:30:00.123456+00",
		"2025-03-01T09:30:00.123456",
		"2025-03-01 09:30:00.123456+00",
		"2025-03-01 09:30:00.123456",
	} {
		got, err := ParseTime(s)
		if err != nil {
			t.Errorf("%s: %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%s: got %v, want %v", s, got, want)
		}
	}

	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected error for invalid timestamp")
	}
}

func TestDecodeZonelessTimestamps(t *testing.T) {
	var c Conversation
	err := json.Unmarshal([]byte(`{
		"id": "c1",
		"title": "Remote work",
		"status": "completed",
		"state": {"a": 1},
		"created_at": "2025-03-01T09:30:00.123456",
		"updated_at": null
	}`), &c)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if c.ID != "c1" || c.Title != "Remote work" || !c.HasState() {
		t.Errorf("unexpected conversation %+v", c)
	}
	if !c.CreatedAt.Equal(time.Date(2025, 3, 1, 9, 30, 0, 123456000, time.UTC)) {
		t.Errorf("unexpected created_at %v", c.CreatedAt)
	}
	if !c.UpdatedAt.IsZero() {
		t.Errorf("expected zero updated_at, got %v", c.UpdatedAt)
	}

	var messages []Message
	err = json.Unmarshal([]byte(`[{"id": "m1", "conversation_id": "c1", "role": "user", "content": "hi", "created_at": "2025-03-01 09:30:00"}]`), &messages)
	if err != nil {
		t.Fatalf("Unmarshal messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != "user" || messages[0].CreatedAt.Hour() != 9 {
		t.Errorf("unexpected messages %+v", messages)
	}
}
