package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/poiesic/gleaner/core"
)

// noiseSelector matches elements that never hold article text.
const noiseSelector = "script, style, nav, header, footer, aside, noscript, iframe, form, svg"

// articleSelectors locate the editorial container, most specific first.
var articleSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".post-content",
	".entry-content",
	".article-body",
	".content",
	"#content",
}

// articleMethod extracts the main editorial content of a static page.
type articleMethod struct {
	loader *loader
}

func newArticleMethod(l *loader) *articleMethod {
	return &articleMethod{loader: l}
}

func (m *articleMethod) Name() string { return MethodArticle }

func (m *articleMethod) Extract(ctx context.Context, rawURL string) (*core.RawContent, error) {
	p, err := m.loader.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if p.isPDF() {
		return extractPDF(p)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	content, err := extractArticle(doc)
	if err != nil {
		return nil, err
	}
	content.URL = p.url
	content.ContentType = p.contentType
	return content, nil
}

// extractArticle reads page metadata and renders the first editorial
// container as lightly marked-up text.
func extractArticle(doc *goquery.Document) (*core.RawContent, error) {
	content := pageMetadata(doc)
	doc.Find(noiseSelector).Remove()

	for _, selector := range articleSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 || strings.TrimSpace(sel.Text()) == "" {
			continue
		}
		content.Text = renderSelection(sel)
		if content.Text != "" {
			return content, nil
		}
	}
	return nil, ErrNoContent
}

// pageMetadata reads title, author and publish date from meta tags.
func pageMetadata(doc *goquery.Document) *core.RawContent {
	content := &core.RawContent{}

	content.Title = firstNonEmpty(
		doc.Find(`meta[property="og:title"]`).AttrOr("content", ""),
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
	)
	content.Author = firstNonEmpty(
		doc.Find(`meta[name="author"]`).AttrOr("content", ""),
		doc.Find(`meta[property="article:author"]`).AttrOr("content", ""),
		doc.Find(`[rel="author"]`).First().Text(),
	)
	published := firstNonEmpty(
		doc.Find(`meta[property="article:published_time"]`).AttrOr("content", ""),
		doc.Find("time[datetime]").First().AttrOr("datetime", ""),
	)
	if t, ok := parseTime(published); ok {
		content.PublishedAt = &t
	}
	return content
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.Join(strings.Fields(v), " "); v != "" {
			return v
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// renderSelection renders headings as "#" lines, list items as "- " lines
// and preformatted blocks as fenced code so structure survives extraction.
func renderSelection(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		renderNode(&b, n)
	}
	return normalizeBlocks(b.String())
}

func renderNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseInline(n.Data))
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c)
		}
		return
	}

	switch tag := n.Data; tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if text := collapse(textContent(n)); text != "" {
			b.WriteString("\n\n" + strings.Repeat("#", int(tag[1]-'0')) + " " + text + "\n\n")
		}
	case "li":
		if text := collapse(textContent(n)); text != "" {
			b.WriteString("\n- " + text + "\n")
		}
	case "pre":
		if code := strings.Trim(textContent(n), "\n"); strings.TrimSpace(code) != "" {
			b.WriteString("\n\n```\n" + code + "\n```\n\n")
		}
	case "br":
		b.WriteString("\n")
	case "p", "div", "section", "article", "main", "blockquote", "figcaption", "table", "tr", "dl", "dd", "dt", "ul", "ol":
		b.WriteString("\n\n")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c)
		}
		b.WriteString("\n\n")
	case "td", "th":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c)
		}
		b.WriteString(" ")
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c)
		}
	}
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collapseInline collapses whitespace like collapse but keeps a single
// space where s began or ended with whitespace, so adjacent inline nodes
// stay separated.
func collapseInline(s string) string {
	inner := collapse(s)
	if inner == "" {
		if s != "" {
			return " "
		}
		return ""
	}
	if strings.TrimLeftFunc(s, unicode.IsSpace) != s {
		inner = " " + inner
	}
	if strings.TrimRightFunc(s, unicode.IsSpace) != s {
		inner += " "
	}
	return inner
}

// normalizeBlocks collapses whitespace within lines and runs of blank lines.
// Lines inside code fences keep their indentation.
func normalizeBlocks(s string) string {
	var out []string
	inFence := false
	blank := false
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			out = append(out, trimmed)
			blank = false
			continue
		}
		if inFence {
			out = append(out, strings.TrimRight(line, " \t\r"))
			continue
		}
		line = collapse(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
