package notify

import (
	"strings"
	"unicode/utf8"
)

// MaxBodyRunes is the number of visible characters kept in a notification body.
const MaxBodyRunes = 80

// Ellipsis marks a truncated body.
const Ellipsis = "…"

// TruncateBody trims text and cuts it to MaxBodyRunes characters, appending
// Ellipsis when something was cut.
func TruncateBody(text string) string {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= MaxBodyRunes {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:MaxBodyRunes]) + Ellipsis
}

// NormalizeTokens trims every token, drops empty ones and removes duplicates,
// keeping the first occurrence order.
func NormalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
