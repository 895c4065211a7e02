package orchestration

import (
	"regexp"
	"strings"

	jsonx "github.com/richinex/feedsage/internal/json"
)

// maxCleanPasses bounds the fixed-point loop in the cleaners.
const maxCleanPasses = 8

var (
	boldPattern      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern    = regexp.MustCompile(`\*(.*?)\*`)
	listPattern      = regexp.MustCompile(`(?m)^[ \t]*[-*][ \t]+`)
	blankRunPattern  = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
	rowBannerPattern = regexp.MustCompile(`^Query Results \(\d+ rows?\):[ \t]*(?:\n|$)`)
	separatorPattern = regexp.MustCompile(`^[\s|+:]*[-=]+[-=\s|+:]*$`)
)

// CleanRetrievalAnswer strips presentation noise from a context-retrieval
// answer. Passes repeat until stable so cleaning is idempotent.
func CleanRetrievalAnswer(s string) string {
	return untilStable(s, cleanRetrievalPass)
}

func cleanRetrievalPass(s string) string {
	if idx := strings.Index(s, "Sources:"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "Answer:"))
	s = strings.TrimSpace(strings.ReplaceAll(s, "RAG Analysis Results:", ""))

	s = listPattern.ReplaceAllString(s, "• ")
	s = boldPattern.ReplaceAllString(s, "$1")
	s = italicPattern.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "`", "")
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanQueryResult strips banners and separator rows from a structured-query
// result. Separator lines are removed entirely rather than blanked.
func CleanQueryResult(s string) string {
	return untilStable(s, cleanQueryPass)
}

func cleanQueryPass(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "SQL Results:"))
	s = rowBannerPattern.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if separatorPattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	s = strings.Join(kept, "\n")

	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// StripCodeFence removes a surrounding code fence and language tag.
func StripCodeFence(s string) string {
	return jsonx.StripCodeFence(s)
}

func untilStable(s string, pass func(string) string) string {
	for range maxCleanPasses {
		next := pass(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}
