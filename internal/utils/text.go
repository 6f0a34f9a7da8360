package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// GenerateUUID returns a new random identifier
func GenerateUUID() string {
	return uuid.New().String()
}

// CountCitations counts markdown links in text
func CountCitations(text string) int {
	if text == "" {
		return 0
	}
	return len(markdownLinkPattern.FindAllStringIndex(text, -1))
}

// CountWords counts whitespace-separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Truncate shortens s to at most maxLen runes, appending "..." when cut
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
