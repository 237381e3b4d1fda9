// Package markdown converts Markdown documents into HTML and extracts their
// front-matter metadata.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// DefaultHighlightStyle is the chroma style used when Options leaves it empty.
const DefaultHighlightStyle = "monokai"

// Options configures a Renderer.
type Options struct {
	HighlightStyle string
	LineNumbers    bool
}

// Document is the result of rendering one Markdown source.
type Document struct {
	HTML  string
	Meta  Metadata
	Title string
}

// Renderer converts Markdown to HTML. It keeps no per-document state and is
// safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with the extension set used for site content.
func New(opts Options) *Renderer {
	style := opts.HighlightStyle
	if style == "" {
		style = DefaultHighlightStyle
	}
	formatOpts := []chromahtml.Option{chromahtml.TabWidth(4)}
	if opts.LineNumbers {
		formatOpts = append(formatOpts, chromahtml.WithLineNumbers(true))
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Footnote,
			extension.DefinitionList,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(formatOpts...),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &Renderer{md: md}
}

// Render converts src into HTML. Front matter is stripped from the body and
// returned as metadata; malformed front matter leaves the metadata empty.
func (r *Renderer) Render(src []byte) (*Document, error) {
	meta, body := splitMetadata(src)

	doc := r.md.Parser().Parse(text.NewReader(body))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, fmt.Errorf("markdown: render: %w", err)
	}

	title := meta.Get("title")
	if title == "" {
		title = firstHeading(doc, body)
	}

	return &Document{
		HTML:  buf.String(),
		Meta:  meta,
		Title: title,
	}, nil
}

// firstHeading returns the text of the first level-1 heading, or "".
func firstHeading(doc ast.Node, src []byte) string {
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			title = nodeText(h, src)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
