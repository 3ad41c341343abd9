package insight

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/poiesic/gleaner/core"
)

const (
	maxTitleLength   = 100
	maxInsights      = 8
	maxTags          = 15
	maxTagLength     = 50
	maxActionItems   = 10
	maxSnippets      = 5
	defaultRelevance = 0.8
)

var (
	errEmptyResponse = errors.New("empty model response")
	errMalformed     = errors.New("malformed model response")
)

// cleanResponse strips markdown code fences and repairs common JSON issues.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return repairJSON(s)
}

// fieldJSON finds the JSON value for key in a model response. A bare array
// response is accepted for any key. isJSON reports whether the response was
// JSON at all, so callers know whether a line-oriented fallback makes sense.
func fieldJSON(response, key string) (raw json.RawMessage, isJSON bool) {
	text := cleanResponse(response)
	startsJSON := text != "" && (text[0] == '{' || text[0] == '[')
	if !startsJSON {
		// Allow a short preamble before the JSON
		start := strings.IndexAny(text, "{[")
		if start < 0 {
			return nil, false
		}
		text = text[start:]
	}

	if text[0] == '[' {
		if json.Valid([]byte(text)) {
			return json.RawMessage(text), true
		}
		return nil, startsJSON
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		// Trailing prose after the object
		end := strings.LastIndex(text, "}")
		if end < 0 || json.Unmarshal([]byte(text[:end+1]), &obj) != nil {
			return nil, startsJSON
		}
	}
	return obj[key], true
}

// prose returns the response with a leading "Label:" line prefix removed.
func prose(response, label string) string {
	text := strings.TrimSpace(response)
	if len(text) >= len(label)+1 && strings.EqualFold(text[:len(label)], label) && text[len(label)] == ':' {
		text = text[len(label)+1:]
	}
	return strings.TrimSpace(text)
}

// listLines returns the items of a bulleted or numbered list in text.
// When no list markers are present every non-empty line is an item.
func listLines(text string) []string {
	var marked, plain []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		if isListLine(line) {
			if item := stripListMarker(line); item != "" {
				marked = append(marked, item)
			}
			continue
		}
		plain = append(plain, line)
	}
	if len(marked) > 0 {
		return marked
	}
	return plain
}

func parseTitle(response string) (string, error) {
	if strings.TrimSpace(response) == "" {
		return "", errEmptyResponse
	}
	if raw, isJSON := fieldJSON(response, string(FieldTitle)); isJSON {
		var title string
		if raw == nil || json.Unmarshal(raw, &title) != nil {
			return "", errMalformed
		}
		return cleanTitle(title)
	}

	for _, line := range strings.Split(prose(response, "Title"), "\n") {
		if title, err := cleanTitle(line); err == nil {
			return title, nil
		}
	}
	return "", errMalformed
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"'#*`))
	if title == "" {
		return "", errMalformed
	}
	return truncate(title, maxTitleLength), nil
}

func parseSummary(response string) (string, error) {
	if strings.TrimSpace(response) == "" {
		return "", errEmptyResponse
	}
	if raw, isJSON := fieldJSON(response, string(FieldSummary)); isJSON {
		var summary string
		if raw == nil || json.Unmarshal(raw, &summary) != nil || strings.TrimSpace(summary) == "" {
			return "", errMalformed
		}
		return strings.TrimSpace(summary), nil
	}
	return prose(response, "Summary"), nil
}

func parseTags(response string) ([]string, error) {
	if strings.TrimSpace(response) == "" {
		return nil, errEmptyResponse
	}
	if raw, isJSON := fieldJSON(response, string(FieldTags)); isJSON {
		var tags []string
		if raw != nil && json.Unmarshal(raw, &tags) == nil {
			return normalizeTags(tags), nil
		}
		var joined string
		if raw != nil && json.Unmarshal(raw, &joined) == nil {
			return normalizeTags(strings.Split(joined, ",")), nil
		}
		return nil, errMalformed
	}

	var tags []string
	for _, line := range listLines(prose(response, "Tags")) {
		tags = append(tags, strings.Split(line, ",")...)
	}
	return normalizeTags(tags), nil
}

// normalizeTags lowercases, trims, de-duplicates and caps tags.
func normalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(scrubString(tag))
		tag = strings.Join(strings.Fields(tag), " ")
		if tag == "" || len(tag) > maxTagLength {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

type rawInsight struct {
	Text      string          `json:"text"`
	Insight   string          `json:"insight"`
	Relevance json.RawMessage `json:"relevance"`
}

func parseInsights(response string) ([]core.Insight, error) {
	if strings.TrimSpace(response) == "" {
		return nil, errEmptyResponse
	}
	insights := make([]core.Insight, 0, maxInsights)
	add := func(text string, relevance float64) {
		text = strings.TrimSpace(text)
		if text == "" || len(insights) == maxInsights {
			return
		}
		insights = append(insights, core.Insight{Text: text, Relevance: relevance})
	}

	if raw, isJSON := fieldJSON(response, string(FieldInsights)); isJSON {
		var objects []rawInsight
		var texts []string
		switch {
		case raw == nil:
			return nil, errMalformed
		case json.Unmarshal(raw, &objects) == nil:
			for _, o := range objects {
				text := o.Text
				if text == "" {
					text = o.Insight
				}
				add(text, parseRelevance(o.Relevance))
			}
		case json.Unmarshal(raw, &texts) == nil:
			for _, t := range texts {
				add(t, defaultRelevance)
			}
		default:
			return nil, errMalformed
		}
		return insights, nil
	}

	for _, line := range listLines(prose(response, "Insights")) {
		add(line, defaultRelevance)
	}
	return insights, nil
}

// parseRelevance accepts a number or numeric string and clamps it to [0,1].
func parseRelevance(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return defaultRelevance
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return defaultRelevance
		}
		if value, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return defaultRelevance
		}
	}
	// Some models answer on a 1-10 scale
	if value > 1 && value <= 10 {
		value /= 10
	}
	return min(max(value, 0), 1)
}

type rawActionItem struct {
	Action string `json:"action"`
	Text   string `json:"text"`
}

func parseActionItems(response string) ([]string, error) {
	if strings.TrimSpace(response) == "" {
		return nil, errEmptyResponse
	}
	items := make([]string, 0, maxActionItems)
	add := func(item string) {
		item = strings.TrimSpace(item)
		if item != "" && len(items) < maxActionItems {
			items = append(items, item)
		}
	}

	if raw, isJSON := fieldJSON(response, string(FieldActionItems)); isJSON {
		var texts []string
		var objects []rawActionItem
		switch {
		case raw == nil:
			return nil, errMalformed
		case json.Unmarshal(raw, &texts) == nil:
			for _, t := range texts {
				add(t)
			}
		case json.Unmarshal(raw, &objects) == nil:
			for _, o := range objects {
				if o.Action != "" {
					add(o.Action)
				} else {
					add(o.Text)
				}
			}
		default:
			return nil, errMalformed
		}
		return items, nil
	}

	for _, line := range listLines(prose(response, "Action Items")) {
		add(line)
	}
	return items, nil
}

type rawSnippet struct {
	Text    string `json:"text"`
	Quote   string `json:"quote"`
	Context string `json:"context"`
}

func parseSnippets(response string) ([]core.Snippet, error) {
	if strings.TrimSpace(response) == "" {
		return nil, errEmptyResponse
	}
	snippets := make([]core.Snippet, 0, maxSnippets)
	add := func(text, context string) {
		text = strings.Trim(strings.TrimSpace(text), `"“”`)
		if text != "" && len(snippets) < maxSnippets {
			snippets = append(snippets, core.Snippet{Text: text, Context: strings.TrimSpace(context)})
		}
	}

	if raw, isJSON := fieldJSON(response, string(FieldQuotableSnippets)); isJSON {
		var objects []rawSnippet
		var texts []string
		switch {
		case raw == nil:
			return nil, errMalformed
		case json.Unmarshal(raw, &objects) == nil:
			for _, o := range objects {
				text := o.Text
				if text == "" {
					text = o.Quote
				}
				add(text, o.Context)
			}
		case json.Unmarshal(raw, &texts) == nil:
			for _, t := range texts {
				add(t, "")
			}
		default:
			return nil, errMalformed
		}
		return snippets, nil
	}

	// Line format: "Quote: ..." optionally followed by "Context: ..."
	var pending *core.Snippet
	flush := func() {
		if pending != nil {
			add(pending.Text, pending.Context)
			pending = nil
		}
	}
	for _, line := range strings.Split(response, "\n") {
		line = stripListMarker(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "quote:"):
			flush()
			pending = &core.Snippet{Text: line[len("quote:"):]}
		case strings.HasPrefix(lower, "context:") && pending != nil:
			pending.Context = line[len("context:"):]
		case strings.HasPrefix(line, `"`) || strings.HasPrefix(line, "“"):
			flush()
			pending = &core.Snippet{Text: line}
		}
	}
	flush()
	return snippets, nil
}
