package sources

import "strings"

// MatchKeywords returns the keywords that occur in text, case-insensitively,
// in the order they were configured.
func MatchKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	matched := []string{}
	seen := make(map[string]bool)

	for _, keyword := range keywords {
		k := strings.ToLower(strings.TrimSpace(keyword))
		if k == "" || seen[k] {
			continue
		}
		if strings.Contains(lower, k) {
			seen[k] = true
			matched = append(matched, keyword)
		}
	}

	return matched
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
