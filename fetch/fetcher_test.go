package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/core"
)

var articleBody = strings.Repeat("Content pipelines turn noisy pages into clean searchable text. ", 6)

const articlePage = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback Title</title>
  <meta property="og:title" content="Pipelines in Practice">
  <meta name="author" content="Dana Writer">
  <meta property="article:published_time" content="2025-03-04T10:00:00Z">
  <script>var tracking = "ignore me";</script>
</head>
<body>
  <nav>Home | About | Contact</nav>
  <article>
    <h1>Pipelines in Practice</h1>
    <p>%s</p>
    <h2>Steps</h2>
    <ul><li>Fetch the page</li><li>Clean the text</li></ul>
    <pre>go run ./cmd/gleaner</pre>
  </article>
  <footer>Copyright 2025</footer>
</body>
</html>`

func articleHTML(body string) string {
	return strings.Replace(articlePage, "%s", body, 1)
}

func newTestFetcher(opts ...Option) *Fetcher {
	base := []Option{WithRateLimit(0), WithMethodTimeout(2 * time.Second)}
	return NewFetcher(append(base, opts...)...)
}

func TestFetch_TextSource(t *testing.T) {
	f := newTestFetcher()

	content, err := f.Fetch(context.Background(), core.TextSource("inline text"))
	require.NoError(t, err)
	assert.Equal(t, "inline text", content.Text)
	assert.Equal(t, MethodDirect, content.Method)
}

func TestFetch_InvalidSource(t *testing.T) {
	f := newTestFetcher()

	_, err := f.Fetch(context.Background(), core.Source{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidSource)
	assert.False(t, core.IsRetryable(err))
}

func TestFetch_Article(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML(articleBody)))
	}))
	defer srv.Close()

	f := newTestFetcher()
	content, err := f.Fetch(context.Background(), core.URLSource(srv.URL+"/post"))
	require.NoError(t, err)

	assert.Equal(t, MethodArticle, content.Method)
	assert.Equal(t, "Pipelines in Practice", content.Title)
	assert.Equal(t, "Dana Writer", content.Author)
	require.NotNil(t, content.PublishedAt)
	assert.Equal(t, 2025, content.PublishedAt.Year())
	assert.Equal(t, srv.URL+"/post", content.URL)

	assert.Contains(t, content.Text, "# Pipelines in Practice")
	assert.Contains(t, content.Text, "## Steps")
	assert.Contains(t, content.Text, "- Fetch the page")
	assert.Contains(t, content.Text, "```")
	assert.NotContains(t, content.Text, "tracking")
	assert.NotContains(t, content.Text, "Home | About")
	assert.NotContains(t, content.Text, "Copyright")
}

func TestFetch_SlowArticleFallsBackToRendered(t *testing.T) {
	release := make(chan struct{})
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer origin.Close()
	defer close(release)

	var renderedURL atomic.Value
	renderer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderedURL.Store(r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML(articleBody)))
	}))
	defer renderer.Close()

	f := newTestFetcher(
		WithMethodTimeout(200*time.Millisecond),
		WithRenderEndpoint(renderer.URL+"/render"),
	)

	target := origin.URL + "/slow"
	content, err := f.Fetch(context.Background(), core.URLSource(target))
	require.NoError(t, err)
	assert.Equal(t, MethodRendered, content.Method)
	assert.Equal(t, target, content.URL)
	assert.Equal(t, target, renderedURL.Load())
	assert.Contains(t, content.Text, "Content pipelines")
}

func TestFetch_GenericFallback(t *testing.T) {
	// No article container and no renderer: only the generic method succeeds
	body := `<html><head><title>Plain Page</title><style>p { color: red }</style></head>
<body><div>` + articleBody + `</div><div>Second block of text.</div></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := newTestFetcher(WithMethods(newGenericMethod(newLoader(http.DefaultClient, 0, DefaultUserAgent))))
	content, err := f.Fetch(context.Background(), core.URLSource(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, MethodGeneric, content.Method)
	assert.Equal(t, "Plain Page", content.Title)
	assert.Contains(t, content.Text, "Second block of text.")
	assert.NotContains(t, content.Text, "color: red")
	assert.Contains(t, content.Text, "\n")
}

func TestFetch_AllMethodsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), core.URLSource(srv.URL+"/missing"))
	require.Error(t, err)

	var fetchErr *core.FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Len(t, fetchErr.Attempts, 3)
	assert.Equal(t, MethodArticle, fetchErr.Attempts[0].Method)
	assert.Equal(t, MethodRendered, fetchErr.Attempts[1].Method)
	assert.Equal(t, MethodGeneric, fetchErr.Attempts[2].Method)
	assert.ErrorIs(t, fetchErr.Attempts[1].Err, ErrNoRenderer)
	assert.Contains(t, fetchErr.Attempts[0].Err.Error(), "404")
	assert.True(t, core.IsRetryable(err))
}

func TestFetch_TextTooShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML("Tiny.")))
	}))
	defer srv.Close()

	f := newTestFetcher(WithMinTextLength(5000))
	_, err := f.Fetch(context.Background(), core.URLSource(srv.URL))

	var fetchErr *core.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.ErrorIs(t, fetchErr.Attempts[0].Err, ErrTextTooShort)
	assert.ErrorIs(t, fetchErr.Attempts[2].Err, ErrTextTooShort)
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	f := newTestFetcher()
	_, err := f.Fetch(ctx, core.URLSource(srv.URL))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, core.IsRetryable(err))
}

func TestFetch_CustomMethodDefaults(t *testing.T) {
	m := &stubMethod{name: "stub", content: &core.RawContent{Text: "  " + articleBody + "  "}}
	f := newTestFetcher(WithMethods(m))

	content, err := f.Fetch(context.Background(), core.URLSource("https://example.com/x"))
	require.NoError(t, err)
	assert.Equal(t, "stub", content.Method)
	assert.Equal(t, "https://example.com/x", content.URL)
	assert.Equal(t, strings.TrimSpace(articleBody), content.Text)
	assert.Equal(t, []string{"stub"}, f.Methods())
}

func TestNewFetcher_DefaultChain(t *testing.T) {
	f := NewFetcher()
	assert.Equal(t, []string{MethodArticle, MethodRendered, MethodGeneric}, f.Methods())
}

func TestLoader_RateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	l := newLoader(http.DefaultClient, 10, DefaultUserAgent)
	start := time.Now()
	for range 3 {
		_, err := l.get(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	// Burst of one at 10/s: the second and third requests wait ~100ms each
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}

func TestPage_IsPDF(t *testing.T) {
	tests := []struct {
		contentType string
		url         string
		want        bool
	}{
		{"application/pdf", "https://a.b/x", true},
		{"application/octet-stream", "https://a.b/paper.PDF", true},
		{"", "https://a.b/paper.pdf", true},
		{"text/html", "https://a.b/paper.pdf", false},
		{"text/html", "https://a.b/index", false},
	}
	for _, tt := range tests {
		p := &page{contentType: tt.contentType, url: tt.url}
		assert.Equal(t, tt.want, p.isPDF(), "%s %s", tt.contentType, tt.url)
	}
}

func TestExtractPDF_Malformed(t *testing.T) {
	_, err := extractPDF(&page{body: []byte("%PDF-1.4 not really"), contentType: "application/pdf"})
	assert.Error(t, err)
}

type stubMethod struct {
	name    string
	content *core.RawContent
	err     error
}

func (s *stubMethod) Name() string { return s.name }

func (s *stubMethod) Extract(context.Context, string) (*core.RawContent, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := *s.content
	return &c, nil
}
