// Package excerpt slices fetched page text into question-relevant windows.
package excerpt

import (
	"sort"
	"strings"
)

const (
	windowSize   = 520
	windowStride = 320
	minStartGap  = 220
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "when": true, "where": true, "who": true, "why": true,
	"how": true, "does": true, "did": true, "will": true, "with": true,
	"this": true, "that": true, "from": true, "about": true, "into": true,
}

type window struct {
	start int
	text  string
	score int
}

// Build selects up to maxChunks overlapping windows of the text that best
// match the question's tokens, emitted in original order and joined by blank
// lines. When nothing matches, the head of the text is returned instead.
// Output never exceeds maxTotalChars.
func Build(text, question string, maxChunks, maxTotalChars int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if maxChunks <= 0 || maxTotalChars <= 0 {
		return ""
	}

	tokens := questionTokens(question)
	windows := sliceWindows(text, tokens)

	best := pickWindows(windows, maxChunks)
	if len(best) == 0 {
		return truncate(text, maxTotalChars)
	}

	sort.Slice(best, func(i, j int) bool { return best[i].start < best[j].start })
	parts := make([]string, 0, len(best))
	for _, w := range best {
		parts = append(parts, w.text)
	}
	return truncate(strings.Join(parts, "\n\n"), maxTotalChars)
}

func sliceWindows(text string, tokens []string) []window {
	var windows []window
	for start := 0; start < len(text); start += windowStride {
		end := start + windowSize
		if end > len(text) {
			end = len(text)
		}
		chunk := text[start:end]
		windows = append(windows, window{
			start: start,
			text:  strings.TrimSpace(chunk),
			score: scoreWindow(chunk, tokens),
		})
		if end == len(text) {
			break
		}
	}
	return windows
}

// pickWindows takes the highest-scoring windows that keep a minimum start
// distance from each other, so adjacent overlapping slices do not repeat
// the same passage.
func pickWindows(windows []window, maxChunks int) []window {
	ranked := append([]window(nil), windows...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var picked []window
	for _, w := range ranked {
		if w.score <= 0 || len(picked) >= maxChunks {
			break
		}
		tooClose := false
		for _, p := range picked {
			if abs(w.start-p.start) < minStartGap {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		picked = append(picked, w)
	}
	return picked
}

func scoreWindow(chunk string, tokens []string) int {
	lower := strings.ToLower(chunk)
	score := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			score++
		}
	}
	return score
}

func questionTokens(question string) []string {
	fields := strings.Fields(strings.ToLower(question))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "?!.,;:'\"()")
		if len(f) < 3 || stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
