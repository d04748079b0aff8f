package detail

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// detectLexer maps Content-Type to a chroma lexer name.
func detectLexer(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.Contains(ct, "xml"):
		return "xml"
	case strings.Contains(ct, "x-www-form-urlencoded"):
		return "text"
	case ct == "text/css":
		return "css"
	case strings.Contains(ct, "javascript"):
		return "javascript"
	case strings.Contains(ct, "yaml"):
		return "yaml"
	default:
		return "text"
	}
}

// highlight applies chroma syntax highlighting to source.
func highlight(source, lexerName string) string {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get("monokai")
	if style == nil {
		style = chromastyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return buf.String()
}

// wrapText performs simple word wrapping using lipgloss.
func wrapText(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}
