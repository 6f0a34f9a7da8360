package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	html, err := Markdown("# Report\n\nSee [source](https://example.com).\n\n| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "<h1>Report</h1>")
	assert.Contains(t, out, `<a href="https://example.com">source</a>`)
	assert.Contains(t, out, "<table>")
}

func TestMarkdownDropsRawHTML(t *testing.T) {
	html, err := Markdown("hello <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")
}

func TestMarkdownEmpty(t *testing.T) {
	html, err := Markdown("   \n")
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestTemplates(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	body, err := Markdown("## Market Research & Analysis\n\nDemand is growing.")
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, ReportTemplateName, ReportPage{
		Title:        "Comprehensive Research Report",
		Status:       "completed",
		ResearchType: "comprehensive",
		Citations:    13,
		Body:         body,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>Comprehensive Research Report</title>")
	assert.Contains(t, out, "13 citations")
	assert.True(t, strings.Contains(out, "<h2>Market Research &amp; Analysis</h2>"))
}
