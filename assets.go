// Package xeroflow provides embedded assets for production builds.
package xeroflow

import "embed"

// TemplateFS holds the HTML templates served by the web UI.
//
//go:embed all:web/templates
var TemplateFS embed.FS
