package ask

import (
	"fmt"
	"strings"

	"github.com/nolia/nolia/internal/model"
)

const (
	maxSnippetChars   = 500
	maxExtractedChars = 2500
)

// promptOptions tune the system prompt for a specific composition call
type promptOptions struct {
	strictCitations bool
	sourcesCount    int
}

var styleDirectives = map[model.Style]string{
	model.StyleConcise:  "Answer in 2-4 short sentences. No filler.",
	model.StyleBalanced: "Answer with moderate depth. Use short paragraphs and bullets where helpful.",
	model.StyleDetailed: "Answer thoroughly with structure: context, details, and caveats.",
	model.StyleCreative: "Answer with an engaging, vivid tone while staying factual.",
}

// buildSystemPrompt assembles the deterministic system message for a
// composition call
func buildSystemPrompt(style model.Style, mode model.Mode, language model.Language, utcDate string, opts promptOptions) string {
	var b strings.Builder
	b.WriteString("You are Nolia, a helpful answer engine. Today's date (UTC) is ")
	b.WriteString(utcDate)
	b.WriteString(".\n")

	directive, ok := styleDirectives[style]
	if !ok {
		directive = styleDirectives[model.StyleBalanced]
	}
	b.WriteString(directive)
	b.WriteString("\n")

	switch language {
	case model.LangEN:
		b.WriteString("Respond in English.\n")
	case model.LangHindi:
		b.WriteString("Respond in Hindi (transliterated Latin script is fine if the user wrote that way).\n")
	default:
		b.WriteString("Respond in the same language as the question.\n")
	}

	if mode == model.ModeVerified {
		b.WriteString("Prioritize accuracy over completeness. Say so when you are unsure.\n")
	}

	if opts.sourcesCount > 0 {
		fmt.Fprintf(&b, "You are given %d numbered sources. Cite them inline as [n] with n between 1 and %d, right after the claim each supports.\n", opts.sourcesCount, opts.sourcesCount)
		b.WriteString("Never invent citation numbers. Never append a Sources or References section at the end; the inline [n] markers are the only citation format.\n")
		if opts.strictCitations {
			b.WriteString("Every factual claim must carry a citation. If the sources do not cover a detail, say so explicitly instead of asserting it.\n")
		}
	}

	b.WriteString("Safety policy: refuse instructions that facilitate self-harm, violence, weapons, illegal drugs, malicious hacking, or child exploitation.")
	return b.String()
}

// buildEvidenceBlock renders the ranked sources as the numbered plain-text
// block the composition prompts reference by [n]
func buildEvidenceBlock(sources []model.SourceCandidate) string {
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, src.Title)
		fmt.Fprintf(&b, "URL: %s\n", src.URL)
		if src.Snippet != "" {
			fmt.Fprintf(&b, "Snippet: %s\n", clip(src.Snippet, maxSnippetChars))
		}
		if src.ExtractedText != "" {
			fmt.Fprintf(&b, "Extracted: %s\n", clip(src.ExtractedText, maxExtractedChars))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// buildFactsPrompt asks for a JSON array of grounded facts
func buildFactsPrompt(question, evidenceBlock string, sourcesCount int) string {
	return fmt.Sprintf(`Extract the facts from the sources below that answer the question.

Question: %s

Sources:
%s

Return ONLY a JSON array, no prose. Each element: {"fact": "<claim, 1-500 chars>", "citations": [n, ...]} where each n is a source number between 1 and %d and at most 3 citations per fact. Include only facts the sources actually state.`, question, evidenceBlock, sourcesCount)
}

// buildComposeFromFactsPrompt asks for the final answer using only the
// extracted facts
func buildComposeFromFactsPrompt(question string, facts []model.GroundedFact) string {
	var b strings.Builder
	for _, f := range facts {
		b.WriteString("- ")
		b.WriteString(f.Fact)
		for _, n := range f.Citations {
			fmt.Fprintf(&b, " [%d]", n)
		}
		b.WriteString("\n")
	}
	return fmt.Sprintf(`Answer the question using ONLY the verified facts below. Keep each fact's [n] citations attached to the claims they support.

Question: %s

Verified facts:
%s`, question, b.String())
}

// buildDirectPrompt asks for an answer straight from the evidence block, or
// from the question alone when no sources exist
func buildDirectPrompt(question, evidenceBlock string) string {
	if evidenceBlock == "" {
		return question
	}
	return fmt.Sprintf(`Answer the question using the sources below, citing them inline as [n].

Question: %s

Sources:
%s`, question, evidenceBlock)
}

const strictRetryDirective = `

IMPORTANT: your previous answer had missing or invalid citations. Rewrite it so that every factual claim carries an inline [n] citation to a source that supports it. If the sources do not cover a detail, state that explicitly rather than asserting it.`

// buildFollowUpsPrompt asks for follow-up questions as a JSON string array
func buildFollowUpsPrompt(question, answer string, hindi bool) string {
	lang := "English"
	if hindi {
		lang = "transliterated Hindi"
	}
	return fmt.Sprintf(`Given this exchange, suggest 3 short follow-up questions (each under 140 characters, in %s) the user might ask next. Return ONLY a JSON array of strings.

Question: %s

Answer: %s`, lang, question, clip(answer, 1500))
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}
