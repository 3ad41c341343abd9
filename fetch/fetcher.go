// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/gleaner/core"
)

// Extraction method names reported in core.RawContent.Method.
const (
	MethodDirect   = "direct"
	MethodArticle  = "article"
	MethodRendered = "rendered"
	MethodGeneric  = "generic"
	MethodPDF      = "pdf"
)

// Defaults for NewFetcher.
const (
	DefaultMinTextLength = 100
	DefaultMethodTimeout = 20 * time.Second
	DefaultRateLimit     = 2.0 // requests per second
	DefaultUserAgent     = "gleaner/1.0 (+https://github.com/poiesic/gleaner)"
)

var (
	// ErrTextTooShort indicates a method produced less text than the minimum.
	ErrTextTooShort = errors.New("extracted text too short")

	// ErrNoRenderer indicates the rendering method has no endpoint configured.
	ErrNoRenderer = errors.New("no renderer configured")

	// ErrNoContent indicates the page had no recognizable content.
	ErrNoContent = errors.New("no content found")
)

// Method extracts content from a URL.
type Method interface {
	Name() string
	Extract(ctx context.Context, rawURL string) (*core.RawContent, error)
}

// Fetcher resolves a source to raw content, trying extraction methods in
// priority order. It never retries; a failed fetch is reported with every
// attempt so the caller can decide.
type Fetcher struct {
	methods        []Method
	minTextLength  int
	methodTimeout  time.Duration
	httpClient     *http.Client
	rateLimit      float64
	userAgent      string
	renderEndpoint string
	logger         *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMethods replaces the default method chain.
func WithMethods(methods ...Method) Option {
	return func(f *Fetcher) {
		f.methods = methods
	}
}

// WithMinTextLength sets the minimum number of characters a method must
// extract for its result to be accepted.
func WithMinTextLength(n int) Option {
	return func(f *Fetcher) {
		f.minTextLength = n
	}
}

// WithMethodTimeout bounds each extraction method.
func WithMethodTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.methodTimeout = d
	}
}

// WithHTTPClient sets the HTTP client used by the default methods.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithRateLimit sets the outbound request rate in requests per second.
// Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(f *Fetcher) {
		f.rateLimit = rps
	}
}

// WithUserAgent sets the User-Agent header on outbound requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithRenderEndpoint sets the prerender service used by the rendered method.
// The service is called as GET {endpoint}?url={page url} and must return the
// rendered HTML.
func WithRenderEndpoint(endpoint string) Option {
	return func(f *Fetcher) {
		f.renderEndpoint = endpoint
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher. Unless WithMethods is given the chain is
// article, rendered, generic.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		minTextLength: DefaultMinTextLength,
		methodTimeout: DefaultMethodTimeout,
		rateLimit:     DefaultRateLimit,
		userAgent:     DefaultUserAgent,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{}
	}
	if f.methodTimeout <= 0 {
		f.methodTimeout = DefaultMethodTimeout
	}
	f.logger = f.logger.With("component", "fetcher")

	if f.methods == nil {
		l := newLoader(f.httpClient, f.rateLimit, f.userAgent)
		f.methods = []Method{
			newArticleMethod(l),
			newRenderedMethod(l, f.renderEndpoint),
			newGenericMethod(l),
		}
	}
	return f
}

// Methods returns the names of the configured methods in priority order.
func (f *Fetcher) Methods() []string {
	names := make([]string, len(f.methods))
	for i, m := range f.methods {
		names[i] = m.Name()
	}
	return names
}

// Fetch resolves source to raw content. Inline text is returned as-is with
// method "direct". URLs are tried against each method in order; the first
// result with at least the minimum text length wins. If every method fails
// a *core.FetchError lists each attempt. If ctx ends, its error is returned.
func (f *Fetcher) Fetch(ctx context.Context, source core.Source) (*core.RawContent, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}

	if source.Kind() == core.SourceKindText {
		return &core.RawContent{Text: source.Text, Method: MethodDirect}, nil
	}

	var attempts []core.FetchAttempt
	for _, m := range f.methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := f.try(ctx, m, source.URL)
		if err == nil {
			f.logger.Debug("extraction succeeded",
				"url", source.URL,
				"method", content.Method,
				"length", len(content.Text))
			return content, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		f.logger.Debug("extraction method failed", "url", source.URL, "method", m.Name(), "err", err)
		attempts = append(attempts, core.FetchAttempt{Method: m.Name(), Err: err})
	}

	f.logger.Warn("all extraction methods failed", "url", source.URL, "attempts", len(attempts))
	return nil, &core.FetchError{Reason: "all extraction methods failed", Attempts: attempts}
}

func (f *Fetcher) try(ctx context.Context, m Method, rawURL string) (*core.RawContent, error) {
	mctx, cancel := context.WithTimeout(ctx, f.methodTimeout)
	defer cancel()

	content, err := m.Extract(mctx, rawURL)
	if err != nil {
		if errors.Is(mctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("timed out after %v: %w", f.methodTimeout, err)
		}
		return nil, err
	}
	if content == nil {
		return nil, ErrNoContent
	}

	content.Text = strings.TrimSpace(content.Text)
	if n := len([]rune(content.Text)); n < f.minTextLength {
		return nil, fmt.Errorf("%w: %d characters, need %d", ErrTextTooShort, n, f.minTextLength)
	}
	if content.Method == "" {
		content.Method = m.Name()
	}
	if content.URL == "" {
		content.URL = rawURL
	}
	return content, nil
}
