package util

import (
	"fmt"
	"strings"
	"unicode"
)

const maxIDLength = 256

// Blank reports whether s is empty once surrounding whitespace is removed.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Humanize turns a snake_case label such as "waiting_for_approval" into
// "waiting for approval".
func Humanize(label string) string {
	return strings.ReplaceAll(label, "_", " ")
}

// ValidateID rejects identifiers that cannot be used as a query key. The id
// is otherwise passed through verbatim.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("id too long: %d bytes", len(id))
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("invalid id: %q", id)
		}
	}
	return nil
}
