package prompts

import (
	"fmt"
	"strings"

	"github.com/adalundhe/glossforge/core/registry"
)

// contentTypeDirectives steer the generator toward the payload shape the
// column expects.
var contentTypeDirectives = map[registry.ContentType]string{
	registry.ContentTypeText:             "Write plain prose with no headings or markdown formatting, concise enough to fit in one glossary field.",
	registry.ContentTypeMarkdown:         "Write well-structured markdown. Use short headings and lists where they aid scanning.",
	registry.ContentTypeCode:             "Return a single fenced code block with a short leading comment. Prefer Python unless the term dictates otherwise.",
	registry.ContentTypeList:             "Return a markdown bullet list only, one item per line, no surrounding prose.",
	registry.ContentTypeStructuredObject: "Return a single valid JSON object only, with no markdown fences and no commentary.",
	registry.ContentTypeInteractive:      "Return a JSON object describing an interactive exercise: fields \"instructions\", \"starter\", and \"solution\".",
}

// SynthesizeTriplet builds the default generate/evaluate/improve prompts for
// a column from its metadata. Deployments override individual columns via
// the YAML overlay when hand-tuned prompts are warranted.
func SynthesizeTriplet(col registry.Column) *Triplet {
	directive := contentTypeDirectives[col.ContentType]

	generative := MustTemplate(fmt.Sprintf(
		"You are an AI/ML educational content assistant. For the term \"{{%s}}\", "+
			"write only the content for this section:\n\n\"%s\"\n\n%s\n"+
			"Aim for roughly %d tokens. Additional context, if any: {{%s}}",
		BindingTerm, col.Title, directive, estimateOrDefault(col.EstimatedTokens), BindingContext,
	))

	evaluative := MustTemplate(fmt.Sprintf(
		"You are a strict reviewer of AI/ML educational content. The section "+
			"\"%s\" for the term \"{{%s}}\" reads:\n\n{{%s}}\n\n"+
			"Score it on each dimension from 0 to 10: %s.\n"+
			"Return ONLY a JSON object of the form\n"+
			"{\"composite\": <0-10>, \"dimensions\": {\"<name>\": {\"score\": <0-10>, \"feedback\": \"<one sentence>\"}}}\n"+
			"with every dimension present. No markdown, no extra text.",
		col.Title, BindingTerm, BindingContent, strings.Join(DimensionNames(), ", "),
	))

	improvement := MustTemplate(fmt.Sprintf(
		"You are an AI/ML educational content assistant revising the section "+
			"\"%s\" for the term \"{{%s}}\". The current draft is:\n\n{{%s}}\n\n"+
			"A reviewer raised these issues:\n\n{{%s}}\n\n"+
			"Rewrite the section addressing every issue. %s\n"+
			"Return only the revised content.",
		col.Title, BindingTerm, BindingContent, BindingFeedback, directive,
	))

	triplet, err := NewTriplet(col.ID, generative, evaluative, improvement)
	if err != nil {
		// Synthesized templates always carry the required bindings.
		panic(err)
	}
	return triplet
}

func estimateOrDefault(tokens int) int {
	if tokens <= 0 {
		return 250
	}
	return tokens
}

// DimensionNames returns the fixed evaluation dimensions in scoring order.
func DimensionNames() []string {
	return []string{
		"accuracy",
		"completeness",
		"clarity",
		"structure",
		"difficulty_fit",
		"actionability",
	}
}
