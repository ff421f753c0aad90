package rank

import (
	"regexp"
	"strings"
	"time"

	"github.com/nolia/nolia/internal/model"
)

const (
	maxOverlapScore  = 6
	maxSourcesFresh  = 8
	maxSourcesStale  = 6
	hostCapFresh     = 1
	hostCapStale     = 2
	unparseableBoost = 2
)

// nowFunc supplies the clock for recency scoring (injectable for tests)
var nowFunc = time.Now

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "when": true, "where": true, "who": true, "why": true,
	"how": true, "does": true, "did": true, "will": true, "with": true,
	"this": true, "that": true, "from": true, "about": true, "into": true,
	"can": true, "has": true, "have": true, "kya": true, "hai": true,
	"kaise": true, "kaun": true,
}

var ugcHosts = []string{
	"medium.com", "blogspot", "wordpress", "substack", "tumblr",
	"reddit.com", "quora.com",
}

var publishedDate = regexp.MustCompile(`Published:\s*(\d{4}-\d{2}-\d{2})`)

// Select dedupes candidates by canonical URL key, scores the survivors, and
// returns the ordered citation list. The returned slice index plus one is
// the [n] a citation refers to.
func Select(question string, candidates []model.EvidenceSource, wantsFresh bool) []model.SourceCandidate {
	tokens := questionTokens(question)

	seen := make(map[string]int)
	var scored []model.SourceCandidate
	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		key := CanonicalKey(c.URL)
		score := scoreSource(c, tokens, wantsFresh)
		if at, dup := seen[key]; dup {
			// keep the higher-scored variant; first writer wins ties
			if score > scored[at].Score {
				scored[at] = model.SourceCandidate{EvidenceSource: c, Score: score, NormURL: key}
			}
			continue
		}
		seen[key] = len(scored)
		scored = append(scored, model.SourceCandidate{EvidenceSource: c, Score: score, NormURL: key})
	}

	sortByScore(scored)

	maxSources := maxSourcesStale
	hostCap := hostCapStale
	if wantsFresh {
		maxSources = maxSourcesFresh
		hostCap = hostCapFresh
	}

	perHost := make(map[string]int)
	picked := make([]model.SourceCandidate, 0, maxSources)
	var skipped []model.SourceCandidate
	for _, c := range scored {
		if len(picked) >= maxSources {
			break
		}
		host := keyHost(c.NormURL)
		if perHost[host] >= hostCap {
			skipped = append(skipped, c)
			continue
		}
		perHost[host]++
		picked = append(picked, c)
	}
	// backfill unused slots ignoring the host cap
	for _, c := range skipped {
		if len(picked) >= maxSources {
			break
		}
		picked = append(picked, c)
	}
	return picked
}

func scoreSource(src model.EvidenceSource, tokens []string, wantsFresh bool) int {
	score := trustScore(src.URL)
	score += overlapScore(src.Title+" "+src.Snippet, tokens)
	if wantsFresh {
		score += recencyScore(src.Snippet)
	}
	return score
}

// trustScore reflects how much weight a domain's content carries on its own
func trustScore(rawURL string) int {
	host := urlHost(rawURL)

	score := 0
	switch {
	case strings.HasSuffix(host, ".gov"):
		score += 6
	case strings.HasSuffix(host, ".edu"):
		score += 5
	case host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org"):
		score += 3
	case strings.HasSuffix(host, ".org"):
		score += 2
	case host == "github.com" || strings.HasSuffix(host, ".github.com"):
		score += 2
	}
	for _, ugc := range ugcHosts {
		if strings.Contains(host, ugc) {
			score -= 2
			break
		}
	}
	return score
}

func overlapScore(text string, tokens []string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			hits++
			if hits >= maxOverlapScore {
				break
			}
		}
	}
	return hits
}

// recencyScore boosts sources whose snippet carries a Published: date. Ages
// are bucketed; a present but unparseable date still earns a small boost.
func recencyScore(snippet string) int {
	m := publishedDate.FindStringSubmatch(snippet)
	if m == nil {
		if strings.Contains(snippet, "Published:") {
			return unparseableBoost
		}
		return 0
	}
	published, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return unparseableBoost
	}
	age := nowFunc().Sub(published)
	switch {
	case age <= 2*24*time.Hour:
		return 4
	case age <= 7*24*time.Hour:
		return 3
	case age <= 30*24*time.Hour:
		return 2
	default:
		return 1
	}
}

// questionTokens extracts the >=3-char lowercased tokens minus stop words
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

// sortByScore is a stable insertion sort so equal scores keep arrival order
func sortByScore(cs []model.SourceCandidate) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].Score > cs[j-1].Score; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

func keyHost(key string) string {
	if idx := strings.IndexAny(key, "/?"); idx >= 0 {
		return key[:idx]
	}
	return key
}

func urlHost(raw string) string {
	host := keyHost(CanonicalKey(raw))
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	return host
}
