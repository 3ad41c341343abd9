package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/poiesic/gleaner/core"
)

// renderedMethod asks a prerender service for the JavaScript-rendered HTML
// of a page and extracts it like the article method, falling back to the
// whole body when no editorial container is found.
type renderedMethod struct {
	loader   *loader
	endpoint string
}

func newRenderedMethod(l *loader, endpoint string) *renderedMethod {
	return &renderedMethod{loader: l, endpoint: strings.TrimSpace(endpoint)}
}

func (m *renderedMethod) Name() string { return MethodRendered }

func (m *renderedMethod) Extract(ctx context.Context, rawURL string) (*core.RawContent, error) {
	if m.endpoint == "" {
		return nil, ErrNoRenderer
	}

	sep := "?"
	if strings.Contains(m.endpoint, "?") {
		sep = "&"
	}
	p, err := m.loader.get(ctx, m.endpoint+sep+"url="+url.QueryEscape(rawURL))
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}

	meta := pageMetadata(doc)
	content, err := extractArticle(doc)
	if errors.Is(err, ErrNoContent) {
		// Noise was already removed by extractArticle
		body := renderSelection(doc.Find("body"))
		if body == "" {
			return nil, ErrNoContent
		}
		content = meta
		content.Text = body
	} else if err != nil {
		return nil, err
	}

	content.URL = rawURL
	content.ContentType = p.contentType
	return content, nil
}
