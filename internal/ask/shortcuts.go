// Package ask orchestrates planning, search, ranking, fetching, and LLM
// composition into one grounded answer per question.
package ask

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// nowFunc supplies the wall clock (injectable for tests)
var nowFunc = time.Now

// hindiTokens are transliterated words that mark a Hindi question when no
// Devanagari script is present
var hindiTokens = []string{
	"hai", "hain", "kya", "kaise", "kaun", "kab", "kahan", "kyu", "kyon",
	"aaj", "abhi", "nahi", "karo", "batao", "mujhe", "tarikh", "samay",
	"baje",
}

// DetectHindi reports whether the question reads as Hindi, either in
// Devanagari script or common transliterated tokens.
func DetectHindi(question string) bool {
	for _, r := range question {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	norm := " " + strings.Join(strings.Fields(strings.ToLower(question)), " ") + " "
	for _, tok := range hindiTokens {
		if strings.Contains(norm, " "+tok+" ") {
			return true
		}
	}
	return false
}

var clockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bwhat time is it\b`),
	regexp.MustCompile(`\bwhat is the time( now| right now)?\s*[?.!]*$`),
	regexp.MustCompile(`\bcurrent time\b`),
	regexp.MustCompile(`\btime right now\b`),
	regexp.MustCompile(`\bwhat('?s| is) today'?s date\b`),
	regexp.MustCompile(`\bwhat day is (it|today)\b`),
	regexp.MustCompile(`\btoday'?s date\b`),
	regexp.MustCompile(`\bsamay kya\b`),
	regexp.MustCompile(`\btime kya hai\b`),
	regexp.MustCompile(`\bkitne baje\b`),
	regexp.MustCompile(`\baaj ki tarikh\b`),
	regexp.MustCompile(`\baaj kaun sa din\b`),
}

// IsClockQuestion reports whether the question asks for the local date or
// time, in English or transliterated Hindi.
func IsClockQuestion(question string) bool {
	norm := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	for _, p := range clockPatterns {
		if p.MatchString(norm) {
			return true
		}
	}
	return false
}

// ClockAnswer formats the current wall clock in the system timezone
func ClockAnswer(hindi bool) string {
	now := nowFunc()
	clock := now.Format("3:04 PM")
	full := now.Format("Mon, 02 Jan 2006 15:04:05 MST")
	if hindi {
		return fmt.Sprintf("Abhi samay %s hai (local time: %s).", clock, full)
	}
	return fmt.Sprintf("The current time is %s (local time: %s).", clock, full)
}

func clockFollowUps(hindi bool) []string {
	if hindi {
		return []string{
			"Kisi aur timezone ka samay batao",
			"Aaj ki tarikh kya hai?",
			"Is hafte ki chhuttiyan kaun si hain?",
		}
	}
	return []string{
		"What is the time in another timezone?",
		"What is today's date?",
		"Are there any holidays this week?",
	}
}

// safetyRule pairs a refusal reason with the phrases that trigger it
type safetyRule struct {
	reason   string
	patterns []*regexp.Regexp
}

var safetyRules = []safetyRule{
	{
		reason: "self-harm",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bkill myself\b`),
			regexp.MustCompile(`\bsuicide\b`),
			regexp.MustCompile(`\bend my life\b`),
			regexp.MustCompile(`\bhurt myself\b`),
			regexp.MustCompile(`\bself[- ]harm\b`),
			regexp.MustCompile(`\bkhudkushi\b`),
		},
	},
	{
		reason: "violence",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bbombs?\b`),
			regexp.MustCompile(`\bexplosives?\b`),
			regexp.MustCompile(`\bmolotov\b`),
			regexp.MustCompile(`\bhow to (kill|attack|hurt) `),
			regexp.MustCompile(`\bblast (kaise|karna)\b`),
		},
	},
	{
		reason: "weapons",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(make|build|print|banana|banau|banate?) .{0,30}\b(gun|firearm|rifle|pistol|silencer)\b`),
			regexp.MustCompile(`\bghost gun\b`),
			regexp.MustCompile(`\b3d.printed (gun|firearm)\b`),
			regexp.MustCompile(`\bbandook (kaise )?bana`),
		},
	},
	{
		reason: "drugs",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(make|cook|synthesi[sz]e|produce|banate?|banana) .{0,30}\b(meth|methamphetamine|heroin|cocaine|fentanyl|mdma|lsd)\b`),
			regexp.MustCompile(`\bdrug synthesis\b`),
		},
	},
	{
		reason: "hacking",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bhack (into|someone|account|wifi|phone)\b`),
			regexp.MustCompile(`\b(write|make|build|create) .{0,30}\b(malware|ransomware|keylogger|virus|botnet)\b`),
			regexp.MustCompile(`\bddos (attack|kaise)\b`),
			regexp.MustCompile(`\bcrack .{0,20}\bpasswords?\b`),
			regexp.MustCompile(`\bphishing (kit|page|site)\b`),
		},
	},
	{
		reason: "csam",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(child|minor|underage)s? .{0,30}\b(sexual|explicit|nude|porn)`),
			regexp.MustCompile(`\bcsam\b`),
		},
	},
}

// SafetyReason returns the refusal reason matching the question, or ""
func SafetyReason(question string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	for _, rule := range safetyRules {
		for _, p := range rule.patterns {
			if p.MatchString(norm) {
				return rule.reason
			}
		}
	}
	return ""
}

// RefusalAnswer is the fixed refusal text for a blocked question
func RefusalAnswer(reason string, hindi bool) string {
	if hindi {
		msg := "Main is request me madad nahi kar sakti."
		if reason == "self-harm" {
			msg += " Agar aap mushkil me hain to kripya kisi bharosemand vyakti ya local helpline se turant baat karein."
		} else {
			msg += " Kripya koi aur sawaal poochein, main khushi se madad karungi."
		}
		return msg
	}
	msg := "I can't help with this request."
	if reason == "self-harm" {
		msg += " If you are struggling, please reach out to someone you trust or a local crisis helpline right away."
	} else {
		msg += " Please ask me something else and I'll be glad to help."
	}
	return msg
}

func refusalFollowUps(hindi bool) []string {
	if hindi {
		return []string{
			"Online surakshit kaise rahein?",
			"Kisi vishay ke baare me jankari chahiye?",
			"Aaj ki taaza khabrein kya hain?",
		}
	}
	return []string{
		"How can I stay safe online?",
		"Can you explain a topic for me?",
		"What are today's top news stories?",
	}
}
