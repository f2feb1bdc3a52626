package store

import (
	"bytes"
	"encoding/json"
)

// HasState reports whether the opaque state payload is a non-empty JSON
// object or array. Null, scalars and empty containers do not count.
func (c *Conversation) HasState() bool {
	if c == nil || len(c.State) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(c.State, &v); err != nil {
		return false
	}

	switch s := v.(type) {
	case map[string]any:
		return len(s) > 0
	case []any:
		return len(s) > 0
	default:
		return false
	}
}

// PrettyState returns the state payload indented with two spaces.
func (c *Conversation) PrettyState() string {
	if c == nil || len(c.State) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, c.State, "", "  "); err != nil {
		return string(c.State)
	}
	return buf.String()
}
