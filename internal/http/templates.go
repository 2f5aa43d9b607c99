package http

import (
	"bytes"
	"fmt"
	"html/template"

	"fintrack/internal/core"
	appweb "fintrack/web"
)

// Shared templates; every page clones them and adds its own "content".
var sharedTemplates = []string{
	"templates/layout.html",
	"templates/nav.html",
	"templates/partials.html",
}

var pageFiles = map[string]string{
	"index":        "templates/index.html",
	"dashboard":    "templates/dashboard.html",
	"transactions": "templates/transactions.html",
}

var templateFuncs = template.FuncMap{
	"monthNumber": func(w core.MonthWindow) int { return int(w.Month) },
}

// templates holds one parsed tree per page plus the shared partials.
type templates struct {
	base  *template.Template
	pages map[string]*template.Template
}

func parseTemplates() (*templates, error) {
	base, err := template.New("base").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, sharedTemplates...)
	if err != nil {
		return nil, fmt.Errorf("parse shared templates: %w", err)
	}

	t := &templates{base: base, pages: make(map[string]*template.Template, len(pageFiles))}
	for name, file := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone templates for %s: %w", name, err)
		}
		page, err := clone.ParseFS(appweb.TemplatesFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		t.pages[name] = page
	}
	return t, nil
}

// page renders a full document through the "layout" template.
func (t *templates) page(name string, data pageData) ([]byte, error) {
	tmpl, ok := t.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("render page %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// partial renders one named fragment. Rendering is buffered so a failed
// template never leaves a half-written response.
func (t *templates) partial(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.base.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// pageData is the root value of every full page.
type pageData struct {
	Title    string
	Active   string
	SignedIn bool
	User     string
	Content  any
}
