// Package renderer turns a portfolio session into markdown, and markdown into
// terminal output, HTML, or interactive charts.
package renderer

import (
	"embed"
	"fmt"
	"html"
	"io/fs"
	"net/url"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates, _ = fs.Sub(templatesFS, "templates")

// Flavor selects the target of the markdown.
type Flavor int

const (
	// Terminal markdown is plain, actions are shown as cpt commands.
	Terminal Flavor = iota
	// Web markdown carries raw HTML: trend classes and action forms.
	Web
)

// RenderDashboard renders the dashboard to a markdown string.
func RenderDashboard(d *Dashboard, flavor Flavor) string {
	partials := map[string]string{
		"header":       "header.md",
		"cards":        "cards.md",
		"distribution": "distribution.md",
		"trend":        "trend.md",
		"alerts":       "alerts.md",
	}
	return renderTemplate("dashboard", "dashboard.md", partials, flavor.funcs(), d)
}

// RenderCards renders only the holding cards, the part refreshed most often.
func RenderCards(d *Dashboard, flavor Flavor) string {
	return renderTemplate("cards", "cards.md", nil, flavor.funcs(), d)
}

func (f Flavor) funcs() template.FuncMap {
	if f == Web {
		return template.FuncMap{
			"text": webText,
			"trend": func(s string, negative bool) string {
				class := "change-positive"
				if negative {
					class = "change-negative"
				}
				return fmt.Sprintf(`<span class="%s">%s</span>`, class, html.EscapeString(s))
			},
			"removeHolding": func(id string) string {
				return fmt.Sprintf(`<form method="post" action="/holdings/%s/remove"><button class="btn btn-danger">Remove</button></form>`, url.PathEscape(id))
			},
			"removeAlert": func(id int64) string {
				return fmt.Sprintf(`<form class="inline" method="post" action="/alerts/%d/remove"><button class="btn btn-danger">Remove</button></form>`, id)
			},
		}
	}
	return template.FuncMap{
		"text":          func(s string) string { return s },
		"trend":         func(s string, negative bool) string { return s },
		"removeHolding": func(id string) string { return fmt.Sprintf("_remove with `cpt remove %s`_", id) },
		"removeAlert":   func(id int64) string { return fmt.Sprintf("(`cpt unalert %d`)", id) },
	}
}

// markdownEscaper backslash-escapes the characters that could turn a name
// into markdown links, images, emphasis or table cells.
var markdownEscaper = func() *strings.Replacer {
	var pairs []string
	for _, c := range "\\`*_[]()|#!~" {
		pairs = append(pairs, string(c), `\`+string(c))
	}
	return strings.NewReplacer(pairs...)
}()

// webText makes 's' inert in web markdown: neither markdown nor HTML.
func webText(s string) string { return html.EscapeString(markdownEscaper.Replace(s)) }

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, funcs template.FuncMap, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
