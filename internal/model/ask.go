package model

import (
	"fmt"
	"strings"
)

// Mode selects how aggressively the pipeline grounds the answer
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeVerified Mode = "verified"
)

// Language is the requested answer language
type Language string

const (
	LangAuto  Language = "auto"
	LangEN    Language = "en"
	LangHindi Language = "hi"
)

// Style controls the verbosity/register of the composed answer
type Style string

const (
	StyleConcise  Style = "Concise"
	StyleBalanced Style = "Balanced"
	StyleDetailed Style = "Detailed"
	StyleCreative Style = "Creative"
)

// WebTopic narrows the search vertical
type WebTopic string

const (
	TopicGeneral WebTopic = "general"
	TopicNews    WebTopic = "news"
	TopicFinance WebTopic = "finance"
)

// MaxQuestionLen is the hard cap on inbound question length
const MaxQuestionLen = 2000

// AskRequest is the validated /api/ask request body
type AskRequest struct {
	Question     string   `json:"question"`
	Model        string   `json:"model,omitempty"`
	Mode         Mode     `json:"mode,omitempty"`
	Language     Language `json:"language,omitempty"`
	Style        Style    `json:"style,omitempty"`
	UseWeb       *bool    `json:"useWeb,omitempty"`
	WebTopic     WebTopic `json:"webTopic,omitempty"`
	WebTimeRange string   `json:"webTimeRange,omitempty"`
}

// WantsWeb reports whether web evidence gathering is enabled (default true)
func (r *AskRequest) WantsWeb() bool {
	return r.UseWeb == nil || *r.UseWeb
}

// Normalize trims the question and fills enum defaults.
// Validate gives the same verdict before or after Normalize.
func (r *AskRequest) Normalize() {
	r.Question = strings.TrimSpace(r.Question)
	if r.Mode == "" {
		r.Mode = ModeVerified
	}
	if r.Language == "" {
		r.Language = LangAuto
	}
	if r.Style == "" {
		r.Style = StyleBalanced
	}
}

// Validate checks the request against the schema. It returns a single error
// whose message concatenates up to 5 issues.
func (r *AskRequest) Validate() error {
	var issues []string

	q := strings.TrimSpace(r.Question)
	if q == "" {
		issues = append(issues, "question must not be empty")
	} else if len(q) > MaxQuestionLen {
		issues = append(issues, fmt.Sprintf("question must be at most %d characters", MaxQuestionLen))
	}
	if len(r.Model) > 200 {
		issues = append(issues, "model must be at most 200 characters")
	}
	switch r.Mode {
	case "", ModeFast, ModeVerified:
	default:
		issues = append(issues, "mode must be one of: fast, verified")
	}
	switch r.Language {
	case "", LangAuto, LangEN, LangHindi:
	default:
		issues = append(issues, "language must be one of: auto, en, hi")
	}
	switch r.Style {
	case "", StyleConcise, StyleBalanced, StyleDetailed, StyleCreative:
	default:
		issues = append(issues, "style must be one of: Concise, Balanced, Detailed, Creative")
	}
	switch r.WebTopic {
	case "", TopicGeneral, TopicNews, TopicFinance:
	default:
		issues = append(issues, "webTopic must be one of: general, news, finance")
	}
	switch r.WebTimeRange {
	case "", "day", "week", "month", "year", "d", "w", "m", "y":
	default:
		issues = append(issues, "webTimeRange must be one of: day, week, month, year, d, w, m, y")
	}

	if len(issues) == 0 {
		return nil
	}
	if len(issues) > 5 {
		issues = issues[:5]
	}
	return fmt.Errorf("%s", strings.Join(issues, "; "))
}

// Citation is one resolved [n] reference in the final answer
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// AskResponse is the /api/ask response body
type AskResponse struct {
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	FollowUps []string   `json:"followUps"`
	LatencyMs int64      `json:"latencyMs"`
}

// GroundedFact is one claim extracted from the evidence during the first
// pass of verified composition. Citations are 1-based source indices.
type GroundedFact struct {
	Fact      string `json:"fact"`
	Citations []int  `json:"citations"`
}
