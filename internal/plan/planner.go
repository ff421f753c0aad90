// Package plan expands a question into search queries and classifies its
// intent with keyword heuristics over the normalized text.
package plan

import (
	"regexp"
	"strings"

	"github.com/nolia/nolia/internal/model"
)

// Intent captures what the question is asking for
type Intent struct {
	WantsFresh     bool
	WantsVeryFresh bool
	Finance        bool
	Core           string
}

// Plan is the derived search strategy for one question
type Plan struct {
	Intent  Intent
	Queries []string
}

var freshTokens = []string{
	"latest", "current", "recent", "news", "update", "trending",
	"haal", "taaza", "is hafte",
}

var veryFreshTokens = []string{
	"today", "right now", "breaking", "aaj", "abhi",
}

var financeTokens = []string{
	"stock", "market", "price", "nifty", "sensex", "crypto", "forex",
	"inflation", "interest rate", "share price", "exchange rate", "ipo",
	"dividend", "mutual fund",
}

var leadingInterrogative = regexp.MustCompile(
	`^(what is|what are|what|who is|who|where is|where|when did|when|why|how do i|how does|how to|how|explain|tell me about|tell me|define|latest|current)\s+`)

// Build derives the search plan for a question. At most 3 deduped queries
// are emitted, in priority order.
func Build(question string, mode model.Mode) Plan {
	norm := normalize(question)
	intent := Intent{
		WantsFresh:     containsAny(norm, freshTokens),
		WantsVeryFresh: containsAny(norm, veryFreshTokens),
		Finance:        containsAny(norm, financeTokens),
		Core:           extractCore(norm),
	}
	if intent.WantsVeryFresh {
		intent.WantsFresh = true
	}

	var queries []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || len(queries) >= 3 {
			return
		}
		for _, existing := range queries {
			if strings.EqualFold(existing, q) {
				return
			}
		}
		queries = append(queries, q)
	}

	add(strings.TrimSpace(question))
	add(intent.Core)
	if intent.WantsFresh {
		add(intent.Core + " latest")
	}
	if intent.WantsVeryFresh {
		add(intent.Core + " today")
	}
	if intent.Finance {
		add(intent.Core + " price")
	}
	if mode == model.ModeVerified {
		add(intent.Core + " official")
	}

	return Plan{Intent: intent, Queries: queries}
}

// extractCore strips leading interrogatives and trailing punctuation,
// leaving the topical core of the question.
func extractCore(norm string) string {
	core := norm
	for {
		stripped := leadingInterrogative.ReplaceAllString(core, "")
		if stripped == core {
			break
		}
		core = stripped
	}
	core = strings.Trim(core, " ?!.")
	if core == "" {
		return strings.Trim(norm, " ?!.")
	}
	return core
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsAny(norm string, tokens []string) bool {
	for _, tok := range tokens {
		if containsToken(norm, tok) {
			return true
		}
	}
	return false
}

// containsToken matches tok on word boundaries so "update" does not fire on
// "updated documentation" edge forms losing meaning; multi-word tokens use a
// plain substring check.
func containsToken(norm, tok string) bool {
	if strings.Contains(tok, " ") {
		return strings.Contains(norm, tok)
	}
	for rest := norm; ; {
		idx := strings.Index(rest, tok)
		if idx < 0 {
			return false
		}
		before := idx == 0 || !isWordByte(rest[idx-1])
		afterIdx := idx + len(tok)
		after := afterIdx >= len(rest) || !isWordByte(rest[afterIdx])
		if before && after {
			return true
		}
		rest = rest[idx+len(tok):]
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
