// Package insight extracts titles, summaries, tags, insights, action items
// and quotable snippets from document text with a language model.
//
// The depth of extraction is a Strategy chosen by SelectStrategy from the
// text analysis:
//
//	light          poor quality or fewer than MinWordCount words
//	comprehensive  excellent or good academic/technical content, fields requested in parallel
//	technical      technical content of lower quality
//	academic       academic content of lower quality
//	standard       everything else
//
// Each field is requested separately and parsed independently. Responses are
// expected as JSON; code fences and unquoted keys are repaired, and plain
// bulleted or numbered lists are accepted as a fallback. A field that cannot
// be obtained takes its default (empty list, extractive summary, first
// heading or "Untitled").
package insight
