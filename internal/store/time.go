package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayouts are tried in order. Zone-less values come from timestamp
// columns without a time zone and are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05",
}

// ParseTime parses the timestamp formats Postgres and PostgREST emit.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

type timestamp time.Time

func (t *timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = timestamp{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = timestamp(parsed)
	return nil
}

func (c *Conversation) UnmarshalJSON(b []byte) error {
	type plain Conversation
	aux := struct {
		*plain
		CreatedAt timestamp `json:"created_at"`
		UpdatedAt timestamp `json:"updated_at"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.CreatedAt = time.Time(aux.CreatedAt)
	c.UpdatedAt = time.Time(aux.UpdatedAt)
	return nil
}

func (m *Message) UnmarshalJSON(b []byte) error {
	type plain Message
	aux := struct {
		*plain
		CreatedAt timestamp `json:"created_at"`
	}{plain: (*plain)(m)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.CreatedAt = time.Time(aux.CreatedAt)
	return nil
}
