package core

import (
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// SourceKind distinguishes URL sources from inline text.
type SourceKind string

const (
	SourceKindURL  SourceKind = "url"
	SourceKindText SourceKind = "text"
)

// Source is either a URL or inline text. Exactly one field is set.
type Source struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// URLSource creates a Source for a URL.
func URLSource(rawURL string) Source {
	return Source{URL: strings.TrimSpace(rawURL)}
}

// TextSource creates a Source for inline text.
func TextSource(text string) Source {
	return Source{Text: text}
}

// Kind reports whether the source is a URL or inline text.
func (s Source) Kind() SourceKind {
	if s.URL != "" {
		return SourceKindURL
	}
	return SourceKindText
}

// String returns a short human-readable reference to the source.
func (s Source) String() string {
	if s.Kind() == SourceKindURL {
		return s.URL
	}
	if len(s.Text) > 60 {
		return "text:" + s.Text[:60] + "..."
	}
	return "text:" + s.Text
}

// Normalized returns the canonical form used for fingerprinting.
// URLs get a lowercase scheme and host with fragment and trailing slash removed.
// Text has its whitespace collapsed.
func (s Source) Normalized() string {
	if s.Kind() == SourceKindText {
		return strings.Join(strings.Fields(s.Text), " ")
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return strings.TrimSpace(s.URL)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	} else {
		u.Path = ""
		u.RawPath = ""
	}
	return u.String()
}

// Fingerprint derives the stable identifier used to deduplicate Documents.
// The same owner and normalized source always produce the same fingerprint.
func Fingerprint(owner string, source Source) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(owner))
	h.Write([]byte{0})
	h.Write([]byte(source.Kind()))
	h.Write([]byte{0})
	h.Write([]byte(source.Normalized()))
	return hex.EncodeToString(h.Sum(nil))
}

// RawContent is the output of the Fetcher.
type RawContent struct {
	Text        string     `json:"text"`
	Title       string     `json:"title,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Method      string     `json:"method"`
	URL         string     `json:"url,omitempty"` // final URL after redirects
	ContentType string     `json:"content_type,omitempty"`
}

// ContentType is the categorical classification of a text.
type ContentType string

const (
	ContentTypeArticle       ContentType = "article"
	ContentTypeDocumentation ContentType = "documentation"
	ContentTypeNews          ContentType = "news"
	ContentTypeBlogPost      ContentType = "blog_post"
	ContentTypeTechnical     ContentType = "technical"
	ContentTypeAcademic      ContentType = "academic"
	ContentTypeGeneral       ContentType = "general"
)

// Quality is the categorical quality assessment of a text.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// Structure describes structural features found in the source text.
type Structure struct {
	HeaderCount         int      `json:"header_count"`
	Headers             []string `json:"headers,omitempty"`
	ListItemCount       int      `json:"list_item_count"`
	CodeBlockCount      int      `json:"code_block_count"`
	LinkCount           int      `json:"link_count"`
	HasHeaders          bool     `json:"has_headers"`
	HasLists            bool     `json:"has_lists"`
	HasCodeBlocks       bool     `json:"has_code_blocks"`
	HasLinks            bool     `json:"has_links"`
	AvgSentenceLength   float64  `json:"avg_sentence_length"`
	AvgParagraphLength  float64  `json:"avg_paragraph_length"`
	BoilerplateRemnants int      `json:"boilerplate_remnants"`
}

// Chunk is one contiguous slice of a document's cleaned text.
type Chunk struct {
	Index         int       `json:"chunk_index"`
	Text          string    `json:"text"`
	StartOffset   int       `json:"start_offset"`
	EndOffset     int       `json:"end_offset"`
	WordCount     int       `json:"word_count"`
	SentenceCount int       `json:"sentence_count"`
	QualityScore  float64   `json:"quality_score"`
	DocumentID    string    `json:"document_id,omitempty"`
	Vector        []float32 `json:"vector,omitempty"`
}

// AnalysisResult is the output of the Text Analyzer.
type AnalysisResult struct {
	CleanedText        string      `json:"cleaned_text"`
	Chunks             []Chunk     `json:"chunks"`
	Language           string      `json:"language"`
	ContentType        ContentType `json:"content_type"`
	Quality            Quality     `json:"quality"`
	QualityScore       float64     `json:"quality_score"`
	WordCount          int         `json:"word_count"`
	SentenceCount      int         `json:"sentence_count"`
	ParagraphCount     int         `json:"paragraph_count"`
	ReadingTimeMinutes int         `json:"reading_time_minutes"`
	ComplexityScore    float64     `json:"complexity_score"`
	KeyPhrases         []string    `json:"key_phrases"`
	Topics             []string    `json:"topics"`
	ExtractiveSummary  string      `json:"extractive_summary"`
	Structure          Structure   `json:"structure"`
}

// Insight is one extracted insight with a relevance in [0,1].
type Insight struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}

// Snippet is a quotable passage with its context.
type Snippet struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// Insights is the output of the Insight Extractor.
type Insights struct {
	Title            string    `json:"title"`
	Summary          string    `json:"summary"`
	Tags             []string  `json:"tags"`
	Insights         []Insight `json:"insights"`
	ActionItems      []string  `json:"action_items"`
	QuotableSnippets []Snippet `json:"quotable_snippets"`
	Strategy         string    `json:"strategy"`
}

// Document is the durable artifact of one successfully processed source.
type Document struct {
	ID                 string      `json:"id"`
	Fingerprint        string      `json:"fingerprint"`
	Owner              string      `json:"owner"`
	Title              string      `json:"title"`
	Summary            string      `json:"summary"`
	Source             Source      `json:"source"`
	SourceURL          string      `json:"source_url,omitempty"`
	Author             string      `json:"author,omitempty"`
	PublishedAt        *time.Time  `json:"published_at,omitempty"`
	ExtractionMethod   string      `json:"extraction_method"`
	ChunkCount         int         `json:"chunk_count"`
	Tags               []string    `json:"tags"`
	Insights           []Insight   `json:"insights"`
	ActionItems        []string    `json:"action_items"`
	QuotableSnippets   []Snippet   `json:"quotable_snippets"`
	ContentType        ContentType `json:"content_type"`
	Quality            Quality     `json:"quality"`
	Language           string      `json:"language"`
	WordCount          int         `json:"word_count"`
	SentenceCount      int         `json:"sentence_count"`
	ParagraphCount     int         `json:"paragraph_count"`
	ReadingTimeMinutes int         `json:"reading_time_minutes"`
	ComplexityScore    float64     `json:"complexity_score"`
	KeyPhrases         []string    `json:"key_phrases"`
	Structure          Structure   `json:"structure"`
	Strategy           string      `json:"strategy"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// SearchResult is a chunk match together with its parent document.
type SearchResult struct {
	Document *Document
	Chunk    *Chunk
	Score    float32
}

// Checkpoint records how far a named maintenance job has progressed so an
// interrupted run can resume.
type Checkpoint struct {
	Name       string    `json:"name"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Processed  int       `json:"processed"`
	UpdatedAt  time.Time `json:"updated_at"`
}
