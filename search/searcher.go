package search

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// Defaults for Options.
const (
	DefaultLimit         = 10
	DefaultMinSimilarity = 0.60
)

// Scoring weights.
const (
	semanticAndTagBoost = 1.5
	tagOnlyScore        = 1.2
	verbatimBoost       = 0.3

	// candidateFactor widens the chunk query so grouping by document still
	// yields up to Limit documents.
	candidateFactor = 4
)

// Options narrows a search.
type Options struct {
	// Limit caps the number of documents returned. Zero means DefaultLimit.
	Limit int

	// MinSimilarity is the cosine similarity a chunk needs to count as a
	// semantic hit. Zero means DefaultMinSimilarity.
	MinSimilarity float32

	// Owner, when set, restricts results to that owner's documents.
	Owner string
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	return o
}

// Searcher provides semantic search over stored document chunks.
type Searcher struct {
	documents storage.DocumentRepository
	embedder  ai.Embedder
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	documents storage.DocumentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		documents: documents,
		embedder:  provider.Embedder(),
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search finds the documents most relevant to query, best first. Each
// result carries the document and its best-scoring chunk.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, opts, nil)
}

// SearchWithMonitor is Search with callbacks at each stage of the search.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, opts Options, monitor SearchMonitor) ([]*core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	opts = opts.withDefaults()

	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	// 1. Semantic search over chunks
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.documents.FindSimilarChunks(ctx, embedding, opts.MinSimilarity, opts.Limit*candidateFactor)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(matches)

	// Keep the best chunk per document; matches arrive best first
	semantic := make(map[string]*core.SearchResult)
	for _, match := range matches {
		if match.Document == nil || match.Chunk == nil {
			continue
		}
		if _, seen := semantic[match.Document.ID]; !seen {
			semantic[match.Document.ID] = match
		}
	}

	// 2. Documents tagged with a query term
	terms := tokenizeAndFilter(query)
	tagged := make(map[string]*core.Document)
	for _, term := range terms {
		docs, err := s.documents.GetDocumentsByTag(ctx, term)
		if err != nil {
			s.logger.Warn("failed to get documents for tag", "tag", term, "err", err)
			continue
		}
		for _, doc := range docs {
			tagged[doc.ID] = doc
		}
	}
	taggedIDs := make([]string, 0, len(tagged))
	for id := range tagged {
		taggedIDs = append(taggedIDs, id)
	}
	slices.Sort(taggedIDs)
	monitor.AfterTagSearch(terms, taggedIDs)

	// 3. Combine and score
	results := make([]*core.SearchResult, 0, len(semantic)+len(tagged))
	for id, match := range semantic {
		result := &core.SearchResult{Document: match.Document, Chunk: match.Chunk}
		if _, inTagged := tagged[id]; inTagged {
			result.Score = semanticAndTagBoost * match.Score
			monitor.SemanticAndTagHit(result)
		} else {
			result.Score = match.Score
			monitor.SemanticHit(result)
		}
		results = append(results, result)
	}

	for _, id := range taggedIDs {
		if _, inSemantic := semantic[id]; inSemantic {
			continue
		}
		chunk, err := s.representativeChunk(ctx, id, terms)
		if err != nil {
			s.logger.Warn("failed to get chunks for tagged document", "document", id, "err", err)
			continue
		}
		if chunk == nil {
			continue
		}
		result := &core.SearchResult{Document: tagged[id], Chunk: chunk, Score: tagOnlyScore}
		monitor.TagHit(result)
		results = append(results, result)
	}

	// Owner filter and verbatim match boost
	filtered := results[:0]
	for _, result := range results {
		if opts.Owner != "" && result.Document.Owner != opts.Owner {
			continue
		}
		if containsAllQueryWords(result.Chunk.Text, query) {
			result.Score += verbatimBoost
		}
		filtered = append(filtered, result)
	}
	results = filtered

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	monitor.Finish(results)

	return results, nil
}

// representativeChunk picks the chunk of a tag-only document that shares
// the most query terms, or its first chunk when none do.
func (s *Searcher) representativeChunk(ctx context.Context, documentID string, terms []string) (*core.Chunk, error) {
	chunks, err := s.documents.GetChunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	best, bestHits := 0, -1
	for i, chunk := range chunks {
		if hits := countQueryWords(chunk.Text, terms); hits > bestHits {
			best, bestHits = i, hits
		}
	}
	return &chunks[best], nil
}
