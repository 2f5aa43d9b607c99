// Package web embeds the HTML templates and static assets served by the
// fintrack server.
package web

import "embed"

// TemplatesFS holds the page layouts and htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds css and js.
//
//go:embed static/*
var StaticFS embed.FS
