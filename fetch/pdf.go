package fetch

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/poiesic/gleaner/core"
)

// extractPDF pulls the plain text layer out of a PDF body. Scanned documents
// without a text layer yield ErrNoContent.
func extractPDF(p *page) (content *core.RawContent, err error) {
	// The pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(p.body), int64(len(p.body)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	text := normalizeBlocks(string(raw))
	if text == "" {
		return nil, ErrNoContent
	}
	return &core.RawContent{
		Text:        text,
		Method:      MethodPDF,
		URL:         p.url,
		ContentType: "application/pdf",
	}, nil
}
