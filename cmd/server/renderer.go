package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed templates
var templateFS embed.FS

// htmlRenderer serves the embedded html/template pages. Every page is
// parsed together with the shared layout at startup so template errors
// fail the boot, not a request.
type htmlRenderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*htmlRenderer, error) {
	r := &htmlRenderer{pages: make(map[string]*template.Template)}

	err := fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".html") {
			return err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), ".html")
		if name == "layout" {
			return nil
		}

		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", path)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *htmlRenderer) Render(w http.ResponseWriter, status int, name string, data map[string]any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}

	// Render to a buffer first so a template failure never produces a
	// half-written page.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
