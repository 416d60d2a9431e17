package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"ago":   humanize.Time,
	"bytes": func(n int) string { return humanize.Bytes(uint64(n)) },
	"f1":    func(f float64) string { return fmt.Sprintf("%.1f", f) },
	"join":  strings.Join,
}).ParseFS(templateFS, "templates/*.html"))

// Render writes the full HTML page.
func Render(w io.Writer, p *Page) error {
	return templates.ExecuteTemplate(w, "page.html", p)
}

// ErrorPage is the view model of the error page.
type ErrorPage struct {
	Title   string
	Status  int
	Message string
}

// RenderError writes the error page shown when a pass fails.
func RenderError(w io.Writer, e ErrorPage) error {
	return templates.ExecuteTemplate(w, "error.html", e)
}
