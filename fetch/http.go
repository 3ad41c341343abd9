package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 10 * 1024 * 1024

// page is a fetched HTTP response body.
type page struct {
	body        []byte
	contentType string
	url         string // final URL after redirects
}

func (p *page) isPDF() bool {
	mediaType, _, _ := mime.ParseMediaType(p.contentType)
	return mediaType == "application/pdf" ||
		(mediaType == "" || mediaType == "application/octet-stream") && strings.HasSuffix(strings.ToLower(p.url), ".pdf")
}

// loader performs rate-limited GET requests shared by the HTTP methods.
type loader struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func newLoader(client *http.Client, rps float64, userAgent string) *loader {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &loader{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

// get fetches rawURL and returns the body of a 200 response.
func (l *loader) get(ctx context.Context, rawURL string) (*page, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &page{body: body, contentType: resp.Header.Get("Content-Type"), url: finalURL}, nil
}
