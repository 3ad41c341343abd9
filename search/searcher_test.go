package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/storage/badger"
)

func newDocuments(t *testing.T) storage.DocumentRepository {
	t.Helper()
	_, docs, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return docs
}

// addDocument stores a document with one chunk per text.
func addDocument(t *testing.T, docs storage.DocumentRepository, owner, url string, tags []string, texts []string, vectors [][]float32) string {
	t.Helper()
	source := core.URLSource(url)
	doc := &core.Document{
		Fingerprint: core.Fingerprint(owner, source),
		Owner:       owner,
		Title:       "Title for " + url,
		Source:      source,
		SourceURL:   url,
		Tags:        tags,
	}
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{Index: i, Text: text}
	}
	id, err := docs.UpsertDocument(context.Background(), doc, chunks, vectors)
	require.NoError(t, err)
	return id
}

// fixedProvider embeds every query as vector.
func fixedProvider(vector []float32) *mock.MockProvider {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return mock.NewMockProviderWithServices(embedder, mock.NewMockLanguageModel()).(*mock.MockProvider)
}

func TestNewSearcher(t *testing.T) {
	docs := newDocuments(t)
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(docs, provider)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(docs, provider, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(docs, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher.logger)
	})

	t.Run("nil document repository", func(t *testing.T) {
		_, err := NewSearcher(nil, provider)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(docs, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestSearch_EmptyDatabase(t *testing.T) {
	searcher, err := NewSearcher(newDocuments(t), mock.NewMockProvider())
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "test query", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyQuery(t *testing.T) {
	searcher, err := NewSearcher(newDocuments(t), mock.NewMockProvider())
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "   ", Options{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_SemanticOnly(t *testing.T) {
	docs := newDocuments(t)
	ai := addDocument(t, docs, "alice", "https://example.com/ai", nil,
		[]string{"This is about artificial intelligence"}, [][]float32{{0.9, 0.1, 0.0}})
	ml := addDocument(t, docs, "alice", "https://example.com/ml", nil,
		[]string{"This is about machine learning"}, [][]float32{{0.85, 0.15, 0.0}})
	addDocument(t, docs, "alice", "https://example.com/cooking", nil,
		[]string{"This is about cooking recipes"}, [][]float32{{0.1, 0.1, 0.8}})

	searcher, err := NewSearcher(docs, fixedProvider([]float32{0.88, 0.12, 0.0}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "neural networks", Options{})
	require.NoError(t, err)

	// Cooking is below the similarity threshold
	require.Len(t, results, 2)
	ids := []string{results[0].Document.ID, results[1].Document.ID}
	assert.ElementsMatch(t, []string{ai, ml}, ids)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	for _, result := range results {
		assert.NotNil(t, result.Chunk)
		assert.LessOrEqual(t, result.Score, float32(1.0001))
	}
}

func TestSearch_TagOnly(t *testing.T) {
	docs := newDocuments(t)
	python := addDocument(t, docs, "alice", "https://example.com/python", []string{"Python", "programming"},
		[]string{"Decorators wrap functions", "I love programming in Python"},
		[][]float32{{0.1, 0.1, 0.1}, {0.1, 0.1, 0.1}})
	addDocument(t, docs, "alice", "https://example.com/js", []string{"javascript"},
		[]string{"JavaScript is also great"}, [][]float32{{0.1, 0.1, 0.1}})

	searcher, err := NewSearcher(docs, fixedProvider([]float32{0.0, 0.0, 1.0}), WithLogger(slog.Default()))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "tell me about python", Options{MinSimilarity: 0.99})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, python, results[0].Document.ID)
	// The chunk mentioning the tag represents the document
	assert.Contains(t, results[0].Chunk.Text, "Python")
	assert.Equal(t, float32(tagOnlyScore), results[0].Score)
}

func TestSearch_SemanticAndTag(t *testing.T) {
	docs := newDocuments(t)
	both := addDocument(t, docs, "alice", "https://example.com/both", []string{"machine"},
		[]string{"Machine learning is fascinating"}, [][]float32{{0.9, 0.1, 0.0}})
	semanticOnly := addDocument(t, docs, "alice", "https://example.com/semantic", nil,
		[]string{"Deep learning models"}, [][]float32{{0.9, 0.1, 0.0}})

	searcher, err := NewSearcher(docs, fixedProvider([]float32{0.9, 0.1, 0.0}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "machine", Options{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, both, results[0].Document.ID)
	assert.Equal(t, semanticOnly, results[1].Document.ID)
	// Boosted by both signals plus the verbatim match
	assert.InDelta(t, semanticAndTagBoost*1.0+verbatimBoost, results[0].Score, 0.001)
	assert.InDelta(t, 1.0, results[1].Score, 0.001)
}

func TestSearch_VerbatimBoost(t *testing.T) {
	docs := newDocuments(t)
	addDocument(t, docs, "alice", "https://example.com/plain", nil,
		[]string{"Nothing relevant here"}, [][]float32{{1, 0, 0}})
	verbatim := addDocument(t, docs, "alice", "https://example.com/verbatim", nil,
		[]string{"The retry policy backs off exponentially."}, [][]float32{{0.95, 0.05, 0}})

	searcher, err := NewSearcher(docs, fixedProvider([]float32{1, 0, 0}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "the Retry policy", Options{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, verbatim, results[0].Document.ID)
	assert.Greater(t, results[0].Score, float32(1.0))
}

func TestSearch_GroupsByDocument(t *testing.T) {
	docs := newDocuments(t)
	id := addDocument(t, docs, "alice", "https://example.com/long", nil,
		[]string{"first part", "second part", "third part"},
		[][]float32{{0.7, 0.3, 0}, {1, 0, 0}, {0.8, 0.2, 0}})

	searcher, err := NewSearcher(docs, fixedProvider([]float32{1, 0, 0}))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Document.ID)
	assert.Equal(t, 1, results[0].Chunk.Index)
	assert.Equal(t, "second part", results[0].Chunk.Text)
}

func TestSearch_OwnerFilterAndLimit(t *testing.T) {
	docs := newDocuments(t)
	for i := range 5 {
		addDocument(t, docs, "alice", fmt.Sprintf("https://example.com/a/%d", i), nil,
			[]string{fmt.Sprintf("alice chunk %d", i)}, [][]float32{{1, float32(i) * 0.1, 0}})
	}
	bob := addDocument(t, docs, "bob", "https://example.com/b", nil,
		[]string{"bob chunk"}, [][]float32{{1, 0, 0}})

	searcher, err := NewSearcher(docs, fixedProvider([]float32{1, 0, 0}))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("limit", func(t *testing.T) {
		results, err := searcher.Search(ctx, "chunk", Options{Limit: 3})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("owner", func(t *testing.T) {
		results, err := searcher.Search(ctx, "chunk", Options{Owner: "bob"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, bob, results[0].Document.ID)
	})

	t.Run("unknown owner", func(t *testing.T) {
		results, err := searcher.Search(ctx, "chunk", Options{Owner: "carol"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSearch_EmbeddingError(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service unavailable")
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockLanguageModel())

	searcher, err := NewSearcher(newDocuments(t), provider)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "query", Options{})
	assert.EqualError(t, err, "embedding service unavailable")
}

type recordingMonitor struct {
	started  string
	semantic int
	terms    []string
	tagged   []string
	events   []string
	finished []*core.SearchResult
}

func (m *recordingMonitor) Start(query string) { m.started = query }
func (m *recordingMonitor) AfterSemanticSearch(matches []*core.SearchResult) {
	m.semantic = len(matches)
}
func (m *recordingMonitor) AfterTagSearch(terms []string, documentIDs []string) {
	m.terms, m.tagged = terms, documentIDs
}
func (m *recordingMonitor) SemanticAndTagHit(r *core.SearchResult) {
	m.events = append(m.events, "both:"+r.Chunk.Text)
}
func (m *recordingMonitor) SemanticHit(r *core.SearchResult) {
	m.events = append(m.events, "semantic:"+r.Chunk.Text)
}
func (m *recordingMonitor) TagHit(r *core.SearchResult) {
	m.events = append(m.events, "tag:"+r.Chunk.Text)
}
func (m *recordingMonitor) Finish(results []*core.SearchResult) { m.finished = results }

func TestSearchWithMonitor(t *testing.T) {
	docs := newDocuments(t)
	addDocument(t, docs, "alice", "https://example.com/golang", []string{"golang"},
		[]string{"goroutines and channels"}, [][]float32{{0, 1, 0}})
	addDocument(t, docs, "alice", "https://example.com/rust", nil,
		[]string{"ownership and borrowing"}, [][]float32{{1, 0, 0}})

	searcher, err := NewSearcher(docs, fixedProvider([]float32{1, 0, 0}))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(context.Background(), "golang or rust", Options{}, monitor)
	require.NoError(t, err)

	assert.Equal(t, "golang or rust", monitor.started)
	assert.Equal(t, 1, monitor.semantic)
	assert.Equal(t, []string{"golang", "or", "rust"}, monitor.terms)
	assert.Len(t, monitor.tagged, 1)
	assert.ElementsMatch(t, []string{"semantic:ownership and borrowing", "tag:goroutines and channels"}, monitor.events)
	assert.Equal(t, results, monitor.finished)
	require.Len(t, results, 2)
	assert.Equal(t, "goroutines and channels", results[0].Chunk.Text)
}

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		name     string
		document string
		query    string
		want     bool
	}{
		{name: "all words present", document: "The retry policy backs off", query: "retry policy", want: true},
		{name: "case and punctuation ignored", document: "Retry, policy!", query: "RETRY policy?", want: true},
		{name: "stop words ignored", document: "retry policy", query: "the retry of a policy", want: true},
		{name: "missing word", document: "retry policy", query: "retry budget", want: false},
		{name: "only stop words", document: "anything", query: "the a an", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAllQueryWords(tt.document, tt.query))
		})
	}
}

func TestCountQueryWords(t *testing.T) {
	terms := tokenizeAndFilter("python decorators")
	assert.Equal(t, 2, countQueryWords("Python decorators wrap functions", terms))
	assert.Equal(t, 1, countQueryWords("I love Python.", terms))
	assert.Zero(t, countQueryWords("JavaScript", terms))
}
