package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/vasilisp/postgen/internal/view"
)

var pages = []string{"generate.html", "post.html", "posts.html"}

// renderer holds one template set per page, each a clone of the layout with
// the page's "content" block parsed into it.
type renderer struct {
	pages map[string]*template.Template
}

// pageData is passed to the layout.
type pageData struct {
	Title       string
	CurrentPath string
	Data        any
}

func newRenderer(templates fs.FS) (*renderer, error) {
	base, err := template.New("").Funcs(templateFuncs()).ParseFS(templates, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := tmpl.ParseFS(templates, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	return r, nil
}

func (r *renderer) render(w http.ResponseWriter, req *http.Request, status int, name, title string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %s", name)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, "base", pageData{
		Title:       title,
		CurrentPath: req.URL.Path,
		Data:        data,
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"statusLabel": view.StatusLabel,
		"statusColor": view.StatusColor,
		"statusClass": func(status string) string { return view.BadgeClass(view.StatusColor(status)) },
		"roleClass":   func(role string) string { return view.BadgeClass(view.RoleColor(role)) },
		"agentClass":  func() string { return view.BadgeClass(view.Purple) },
		"formatTime":  formatTime,
		"markdown":    markdown,
		"runLabel":    func() string { return view.RunLabel },
		"busyLabel":   func() string { return view.GeneratingLabel },
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
