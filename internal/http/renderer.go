// Package httpx provides HTTP handlers, middleware, and routing for the
// web UI: the OAuth login flow, token pages, and the invoice endpoints.
package httpx

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
)

// CodePage is the view model for the single "code" page template: a
// title, an optional subtitle, an optional list of per-item results, and
// an optional pretty-printed code block.
type CodePage struct {
	Title    string
	SubTitle string
	Results  []string
	Code     string
}

// TemplateRenderer renders the HTML pages served by the UI.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing templates (required)
	Logger     *slog.Logger // Logger for template errors (optional)
}

// NewTemplateRenderer constructs a renderer by parsing templates from the
// provided filesystem.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}

	t, err := template.New("root").ParseFS(cfg.TemplateFS, "web/templates/*.tmpl")
	if err != nil {
		return nil, err
	}

	return &TemplateRenderer{t: t, logger: cfg.Logger}, nil
}

// RenderCode renders the code page. Template errors are logged and turned
// into a plain 500 so a half-written body never reaches the client.
func (r *TemplateRenderer) RenderCode(w http.ResponseWriter, page CodePage) {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, "code", page); err != nil {
		if r.logger != nil {
			r.logger.Error("template execution failed",
				slog.String("template", "code"),
				slog.Any("error", err),
			)
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil && r.logger != nil {
		r.logger.Error("failed to write rendered template", slog.Any("error", err))
	}
}
