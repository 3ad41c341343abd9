package fetch

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/poiesic/gleaner/core"
)

// genericMethod fetches a page and strips all markup, keeping text nodes
// outside scripts and styles. It is the last resort for pages the article
// extractor cannot make sense of.
type genericMethod struct {
	loader *loader
}

func newGenericMethod(l *loader) *genericMethod {
	return &genericMethod{loader: l}
}

func (m *genericMethod) Name() string { return MethodGeneric }

func (m *genericMethod) Extract(ctx context.Context, rawURL string) (*core.RawContent, error) {
	p, err := m.loader.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if p.isPDF() {
		return extractPDF(p)
	}

	title, text := stripHTML(p.body)
	if text == "" {
		return nil, ErrNoContent
	}
	return &core.RawContent{
		Text:        text,
		Title:       title,
		URL:         p.url,
		ContentType: p.contentType,
	}, nil
}

// skipped elements whose text is never content.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
}

// blocks are elements that start a new line.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Blockquote: true, atom.Pre: true,
	atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Header: true, atom.Footer: true,
}

// stripHTML tokenizes body and returns the page title and its visible text
// with one block element per line.
func stripHTML(body []byte) (title, text string) {
	z := html.NewTokenizer(bytes.NewReader(body))
	var b, t strings.Builder
	skipDepth := 0
	inTitle := false

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way keep what was read
			return collapse(t.String()), normalizeBlocks(b.String())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skipped[a] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if a == atom.Title {
				inTitle = true
			}
			if blocks[a] {
				b.WriteString("\n")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skipped[a] && skipDepth > 0 {
				skipDepth--
				continue
			}
			if a == atom.Title {
				inTitle = false
			}
			if blocks[a] {
				b.WriteString("\n")
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			data := string(z.Text())
			if inTitle {
				t.WriteString(data)
				continue
			}
			b.WriteString(collapseInline(data))
		}
	}
}
