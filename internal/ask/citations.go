package ask

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nolia/nolia/internal/model"
)

var citationRef = regexp.MustCompile(`\[(\d{1,3})\]`)

// SanitizeCitations strips [n] references outside 1..sourceCount from the
// answer. The operation is idempotent and never introduces new numbers.
func SanitizeCitations(answer string, sourceCount int) string {
	return citationRef.ReplaceAllStringFunc(answer, func(ref string) string {
		n, err := strconv.Atoi(ref[1 : len(ref)-1])
		if err != nil || n < 1 || n > sourceCount {
			return ""
		}
		return ref
	})
}

// ExtractCitationNumbers returns the distinct in-range citation numbers in
// ascending order, plus whether any out-of-range reference was present.
func ExtractCitationNumbers(answer string, sourceCount int) (nums []int, hadOutOfRange bool) {
	seen := make(map[int]bool)
	for _, m := range citationRef.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > sourceCount {
			hadOutOfRange = true
			continue
		}
		if !seen[n] {
			seen[n] = true
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums, hadOutOfRange
}

// MapCitations projects the distinct in-range citation numbers found in the
// answer onto the ranked source list, ascending by number.
func MapCitations(answer string, sources []model.SourceCandidate) []model.Citation {
	nums, _ := ExtractCitationNumbers(answer, len(sources))
	citations := make([]model.Citation, 0, len(nums))
	for _, n := range nums {
		src := sources[n-1]
		citations = append(citations, model.Citation{URL: src.URL, Title: src.Title})
	}
	return citations
}

var bulletLine = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)

// NeedsStrictRetry reports whether the answer's citations are defective:
// an out-of-range reference appeared, no reference survived, or a factual
// block lacks one.
func NeedsStrictRetry(answer string, sourceCount int) bool {
	nums, hadOutOfRange := ExtractCitationNumbers(answer, sourceCount)
	if hadOutOfRange || len(nums) == 0 {
		return true
	}
	return hasUncitedFactualBlock(answer)
}

// hasUncitedFactualBlock applies the per-block heuristic: bullets longer
// than 20 chars and prose blocks of 40+ chars must each carry a [n].
// Fenced code is skipped entirely.
func hasUncitedFactualBlock(answer string) bool {
	for _, block := range splitBlocks(answer) {
		lines := strings.Split(block, "\n")
		bullets := bulletLines(lines)
		if len(bullets) > 0 {
			for _, b := range bullets {
				body := bulletLine.ReplaceAllString(b, "")
				if len(body) > 20 && !citationRef.MatchString(b) {
					return true
				}
			}
			continue
		}
		prose := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(block), "#"))
		if len(prose) >= 40 && !citationRef.MatchString(block) {
			return true
		}
	}
	return false
}

// splitBlocks divides the answer on blank lines, dropping fenced code
func splitBlocks(answer string) []string {
	var blocks []string
	var current []string
	inFence := false
	flush := func() {
		block := strings.TrimSpace(strings.Join(current, "\n"))
		if block != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(answer, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func bulletLines(lines []string) []string {
	var bullets []string
	for _, l := range lines {
		if bulletLine.MatchString(l) {
			bullets = append(bullets, l)
		}
	}
	return bullets
}
