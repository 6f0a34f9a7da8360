package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// ReportTemplateName is the name gin renders report pages with
const ReportTemplateName = "report.html"

//go:embed templates/report.html
var templateFS embed.FS

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithXHTML(),
	),
)

// ReportPage is the view model of the HTML report page
type ReportPage struct {
	Title        string
	Status       string
	ResearchType string
	Model        string
	Citations    int
	WordCount    int
	Date         string
	Error        string
	Body         template.HTML
}

// Markdown converts research markdown to HTML. Raw HTML in the source is
// omitted.
func Markdown(source string) (template.HTML, error) {
	text := strings.TrimSpace(source)
	if text == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Templates parses the embedded HTML templates
func Templates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}
