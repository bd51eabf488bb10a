// Package web carries the document pages and their stylesheet inside the binary.
package web

import "embed"

// Templates holds the layouts, partials and pages parsed by internal/view.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static holds the assets served under /static.
//
//go:embed static/css/*.css
var Static embed.FS
