// Package view holds the state and presentation rules of the generator,
// detail and list pages, independent of HTTP.
package view

import "github.com/vasilisp/postgen/internal/util"

type Color string

const (
	Green  Color = "green"
	Yellow Color = "yellow"
	Blue   Color = "blue"
	Gray   Color = "gray"
	Purple Color = "purple"
)

// StatusColor maps a conversation lifecycle status to its badge color.
func StatusColor(status string) Color {
	switch status {
	case "completed":
		return Green
	case "waiting_for_approval":
		return Yellow
	case "in_progress":
		return Blue
	default:
		return Gray
	}
}

// RoleColor maps a message role to its badge color.
func RoleColor(role string) Color {
	switch role {
	case "user":
		return Blue
	case "assistant":
		return Green
	default:
		return Gray
	}
}

// StatusLabel is the status as shown on a badge.
func StatusLabel(status string) string {
	return util.Humanize(status)
}

// BadgeClass returns the style classes for a badge of the given color.
func BadgeClass(c Color) string {
	return "bg-" + string(c) + "-100 text-" + string(c) + "-800"
}
