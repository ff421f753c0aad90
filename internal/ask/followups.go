package ask

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	maxFollowUps    = 3
	maxFollowUpLen  = 140
	followUpTrimSet = " \t\"'`"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

var listPrefix = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s*`)

// parseFollowUps extracts follow-up questions from a model reply. The reply
// should be a JSON string array but fenced or bulleted renditions are
// tolerated; nothing usable returns an error so the caller can fall back.
func parseFollowUps(reply string) ([]string, error) {
	reply = strings.TrimSpace(reply)
	if m := fencedBlock.FindStringSubmatch(reply); m != nil {
		reply = strings.TrimSpace(m[1])
	}

	var items []string
	if err := json.Unmarshal([]byte(reply), &items); err != nil {
		// lazy format: try the bracketed slice inside prose, then line items
		if start, end := strings.Index(reply, "["), strings.LastIndex(reply, "]"); start >= 0 && end > start {
			if json.Unmarshal([]byte(reply[start:end+1]), &items) == nil {
				return sanitizeFollowUps(items)
			}
		}
		for _, line := range strings.Split(reply, "\n") {
			if listPrefix.MatchString(line) {
				items = append(items, listPrefix.ReplaceAllString(line, ""))
			}
		}
	}
	return sanitizeFollowUps(items)
}

func sanitizeFollowUps(items []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		item = strings.Trim(listPrefix.ReplaceAllString(strings.TrimSpace(item), ""), followUpTrimSet)
		if item == "" || len(item) > maxFollowUpLen {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if len(out) >= maxFollowUps {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable follow-ups in reply")
	}
	return out, nil
}

// heuristicFollowUps derives generic follow-ups from the topical core when
// the LLM call fails or returns garbage
func heuristicFollowUps(core string, hindi bool) []string {
	core = strings.TrimSpace(core)
	if core == "" {
		core = "this topic"
		if hindi {
			core = "is vishay"
		}
	}
	core = clip(core, 100)
	if hindi {
		return []string{
			fmt.Sprintf("%s ke baare me aur batao", core),
			fmt.Sprintf("%s kaise kaam karta hai?", core),
			fmt.Sprintf("%s ki taaza jankari kya hai?", core),
		}
	}
	return []string{
		fmt.Sprintf("Tell me more about %s", core),
		fmt.Sprintf("How does %s work?", core),
		fmt.Sprintf("What are the latest updates on %s?", core),
	}
}
