// Package web embeds the HTML templates and static assets.
package web

import "embed"

// Templates holds the page templates.
//
//go:embed templates/*.tmpl
var Templates embed.FS

// Static holds stylesheets and other assets served under /static/.
//
//go:embed static
var Static embed.FS
