// Package web embeds the HTML pages served by the upload front-end.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses the embedded pages. Each page is addressable by its
// base filename, e.g. "index.html".
func Templates() (*template.Template, error) {
	return template.ParseFS(files, "templates/*.html")
}
