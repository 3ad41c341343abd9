package insight

import (
	"fmt"
	"strings"

	"github.com/poiesic/gleaner/core"
)

const jsonInstructions = `Output ONLY valid JSON matching the shape below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }.`

// guidance per content type; article is the default.
type typeGuidance map[core.ContentType]string

func (g typeGuidance) get(ct core.ContentType) string {
	if s, ok := g[ct]; ok {
		return s
	}
	return g[core.ContentTypeArticle]
}

var summaryGuidance = typeGuidance{
	core.ContentTypeTechnical:     "Focus on technical concepts, features, and practical applications.",
	core.ContentTypeDocumentation: "Emphasize functionality, usage, and key information for users.",
	core.ContentTypeAcademic:      "Include methodology, findings, significance, and potential implications.",
	core.ContentTypeNews:          "Highlight key facts, outcomes, and newsworthy elements.",
	core.ContentTypeBlogPost:      "Capture the main message and the value for readers.",
	core.ContentTypeArticle:       "Cover the main topic, key points, and important takeaways.",
}

var insightGuidance = typeGuidance{
	core.ContentTypeTechnical:     "Focus on technical insights, best practices, implementation considerations, and technical implications.",
	core.ContentTypeDocumentation: "Extract insights about usability, common issues, best practices, and user experience considerations.",
	core.ContentTypeAcademic:      "Focus on research insights, methodological implications, theoretical contributions, and practical applications.",
	core.ContentTypeNews:          "Extract insights about implications, trends, impact, and broader context.",
	core.ContentTypeBlogPost:      "Focus on actionable insights, personal takeaways, and value for readers.",
	core.ContentTypeArticle:       "Extract insights about key learnings, implications, and important takeaways.",
}

var tagGuidance = typeGuidance{
	core.ContentTypeTechnical:     "Include technical terms, programming languages, frameworks, methodologies, and technical concepts.",
	core.ContentTypeDocumentation: "Focus on functionality, features, user scenarios, and technical topics.",
	core.ContentTypeAcademic:      "Include research areas, methodologies, key concepts, and academic disciplines.",
	core.ContentTypeNews:          "Include relevant topics, entities, locations, and current events.",
	core.ContentTypeBlogPost:      "Include topics, themes, and relevant categories.",
	core.ContentTypeArticle:       "Include main topics, themes, and relevant categories.",
}

var actionGuidance = typeGuidance{
	core.ContentTypeTechnical:     "Focus on implementation steps, technical tasks, and development actions.",
	core.ContentTypeDocumentation: "Extract user actions, setup steps, and usage instructions.",
	core.ContentTypeAcademic:      "Focus on research actions, follow-up studies, and academic tasks.",
	core.ContentTypeNews:          "Extract potential actions, responses, or next steps related to the news.",
	core.ContentTypeBlogPost:      "Focus on actionable takeaways readers can apply.",
	core.ContentTypeArticle:       "Extract actionable insights and next steps for readers.",
}

var quoteGuidance = typeGuidance{
	core.ContentTypeTechnical:     "Focus on key technical statements, important definitions, and notable technical insights.",
	core.ContentTypeDocumentation: "Extract important statements, key concepts, and essential information.",
	core.ContentTypeAcademic:      "Focus on key findings, important conclusions, and significant statements.",
	core.ContentTypeNews:          "Extract newsworthy quotes, important statements, and key facts.",
	core.ContentTypeBlogPost:      "Focus on insightful statements and memorable quotes.",
	core.ContentTypeArticle:       "Extract important statements, key insights, and notable quotes.",
}

// buildPrompt creates the model prompt for one field.
func buildPrompt(field Field, strategy Strategy, contentType core.ContentType, language, content string) string {
	var task, shape string
	switch field {
	case FieldTitle:
		task = "Extract a concise, descriptive title (max 100 characters) for the following content."
		shape = `{"title": "..."}`
	case FieldSummary:
		task = "Generate a summary of the following content.\n\n" +
			strategy.profile().summaryGuidance + "\n\n" + summaryGuidance.get(contentType)
		shape = `{"summary": "..."}`
	case FieldInsights:
		task = fmt.Sprintf("Extract %s key insights from the following content.\n\n%s\n\n"+
			"Each insight is one clear sentence with a relevance score between 0 and 1.",
			strategy.profile().insightCount, insightGuidance.get(contentType))
		shape = `{"insights": [{"text": "...", "relevance": 0.9}]}`
	case FieldTags:
		task = "Extract 10-15 relevant tags from the following content.\n\n" + tagGuidance.get(contentType) +
			"\n\nTags are single words or short lowercase phrases useful for categorization and search."
		shape = `{"tags": ["...", "..."]}`
	case FieldActionItems:
		task = "Extract actionable items from the following content.\n\n" + actionGuidance.get(contentType) +
			"\n\nEach action item is one clear, specific instruction."
		shape = `{"action_items": ["...", "..."]}`
	case FieldQuotableSnippets:
		task = "Extract 2-5 quotable snippets from the following content.\n\n" + quoteGuidance.get(contentType) +
			"\n\nQuote the text exactly and give brief context for each."
		shape = `{"quotable_snippets": [{"text": "...", "context": "..."}]}`
	}

	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\n")
	b.WriteString(jsonInstructions)
	b.WriteString("\n\n")
	b.WriteString(shape)
	b.WriteString("\n\nLanguage: ")
	b.WriteString(language)
	b.WriteString("\n\nContent:\n")
	b.WriteString(content)
	return b.String()
}
