// Package profile keeps lightweight in-memory usage summaries per
// anonymous client ID.
package profile

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/nolia/nolia/internal/model"
)

const (
	maxProfiles = 5000
	maxIDLen    = 200
	maxAge      = 30 * 24 * time.Hour
)

// nowFunc supplies the clock (injectable for tests)
var nowFunc = time.Now

var validAnonID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,200}$`)

// ValidAnonID reports whether raw is an acceptable anonymous client ID
func ValidAnonID(raw string) bool {
	return len(raw) <= maxIDLen && validAnonID.MatchString(raw)
}

// topicRule assigns questions to a coarse interest bucket
type topicRule struct {
	topic   string
	pattern *regexp.Regexp
}

var topicRules = []topicRule{
	{"finance", regexp.MustCompile(`(?i)\b(stock|market|price|crypto|nifty|sensex|forex|inflation|ipo|dividend)\b`)},
	{"news", regexp.MustCompile(`(?i)\b(news|latest|breaking|today|update|election|taaza|aaj)\b`)},
	{"tech", regexp.MustCompile(`(?i)\b(software|programming|computer|phone|app|ai|internet|code)\b`)},
	{"health", regexp.MustCompile(`(?i)\b(health|doctor|symptom|medicine|diet|exercise|yoga)\b`)},
	{"sports", regexp.MustCompile(`(?i)\b(cricket|football|match|score|ipl|olympics|tournament)\b`)},
}

// ClassifyTopic maps a question to an interest bucket, defaulting to
// "general"
func ClassifyTopic(question string) string {
	for _, rule := range topicRules {
		if rule.pattern.MatchString(question) {
			return rule.topic
		}
	}
	return "general"
}

// Store is the in-memory anonymous-profile table
type Store struct {
	mu       sync.Mutex
	profiles map[string]*model.AnonProfile
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{profiles: make(map[string]*model.AnonProfile)}
}

// Record upserts the profile for anonID after a successful request.
// Invalid IDs are ignored.
func (s *Store) Record(anonID, question string, language model.Language, style model.Style) {
	if !ValidAnonID(anonID) {
		return
	}
	now := nowFunc().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[anonID]
	if !ok {
		p = &model.AnonProfile{
			AnonID:      anonID,
			CreatedAtMs: now,
			TopicCounts: make(map[string]int),
		}
		s.profiles[anonID] = p
	}
	p.LastSeenAtMs = now
	p.AskCount++
	p.LastLanguage = language
	p.LastStyle = style
	p.TopicCounts[ClassifyTopic(question)]++

	s.prune(now)
}

// Get returns a copy of the profile for anonID, if present
func (s *Store) Get(anonID string) (model.AnonProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[anonID]
	if !ok {
		return model.AnonProfile{}, false
	}
	copied := *p
	copied.TopicCounts = make(map[string]int, len(p.TopicCounts))
	for k, v := range p.TopicCounts {
		copied.TopicCounts[k] = v
	}
	return copied, true
}

// Len reports the current profile count
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// prune drops profiles idle past the age cap, then trims oldest-first when
// the table exceeds capacity. Caller holds the lock.
func (s *Store) prune(nowMs int64) {
	cutoff := nowMs - maxAge.Milliseconds()
	for id, p := range s.profiles {
		if p.LastSeenAtMs < cutoff {
			delete(s.profiles, id)
		}
	}
	if len(s.profiles) <= maxProfiles {
		return
	}
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.profiles[ids[i]].LastSeenAtMs < s.profiles[ids[j]].LastSeenAtMs
	})
	for _, id := range ids[:len(s.profiles)-maxProfiles] {
		delete(s.profiles, id)
	}
}
