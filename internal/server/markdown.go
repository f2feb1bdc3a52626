package server

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	md     = goldmark.New()
	policy = bluemonday.UGCPolicy()
)

// markdown converts s to HTML and sanitizes the output.
func markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		slog.Warn("failed to convert markdown", "error", err)
		return template.HTML("<p>" + template.HTMLEscapeString(s) + "</p>")
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}
