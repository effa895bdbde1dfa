package site

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ConvertMarkdown renders a report document as HTML for the static site.
// Parser and renderer are built per call; gomarkdown parsers are single-use.
func ConvertMarkdown(text string) template.HTML {
	if text == "" {
		return template.HTML("")
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)

	// Report bodies carry LLM-authored text, so raw HTML is dropped rather
	// than passed through.
	htmlFlags := mdhtml.CommonFlags | mdhtml.HrefTargetBlank | mdhtml.SkipHTML
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: htmlFlags,
	})

	return template.HTML(markdown.ToHTML([]byte(text), mdParser, renderer))
}
