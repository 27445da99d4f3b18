package normalize

import (
	"regexp"
	"strings"

	"github.com/nao1215/biosnap/internal/model"
)

var (
	// summaryPhrase marks content that describes the section as a whole.
	summaryPhrase = regexp.MustCompile(`(?i)(optimal range|reference range|your .* score)`)

	// rangePhrase marks content naming a reference interval in words.
	rangePhrase = regexp.MustCompile(`(?i)(optimal range|reference range)`)

	// numericRange matches "0-1", "< 2.5 to > 4", "10–20" and similar.
	numericRange = regexp.MustCompile(`[≤≥<>]?\s*\d+(?:\.\d+)?\s*(–|-|to)\s*[≤≥<>]?\s*\d+(?:\.\d+)?`)

	// scoreWord matches "score" as a whole word.
	scoreWord = regexp.MustCompile(`(?i)\bscore\b`)
)

// IsCompositeLike reports whether item is the section-level score of a section
// titled sectionTitle rather than one of its child results.
//
// An item qualifies when any of these holds:
//   - it has no title and its value is numeric or its content reads like a summary
//   - its title contains the word "score" and its value is numeric
//   - its title equals the section title (case-insensitive, trimmed) and it has a value
func IsCompositeLike(item model.ResultItem, sectionTitle string) bool {
	title := item.Label()
	isNum := item.Value.IsNumeric()

	if title == "" && (isNum || summaryPhrase.MatchString(item.Content)) {
		return true
	}
	if scoreWord.MatchString(title) && isNum {
		return true
	}
	return strings.ToLower(title) == strings.ToLower(strings.TrimSpace(sectionTitle)) && item.Value.HasValue()
}

// FindComposite returns the index of the first composite-like item, or -1.
// When several items qualify, list order decides.
func FindComposite(results []model.ResultItem, sectionTitle string) int {
	for i, item := range results {
		if IsCompositeLike(item, sectionTitle) {
			return i
		}
	}
	return -1
}

// PickSectionSummary returns the raw content that describes the section's
// reference range.
//
// Items are checked in order; the first whose content names an optimal or
// reference range, or contains a numeric range, wins. Failing that, the content of
// the first item whose title contains "score" is used. Otherwise it returns "".
func PickSectionSummary(results []model.ResultItem) string {
	for _, item := range results {
		if rangePhrase.MatchString(item.Content) || numericRange.MatchString(item.Content) {
			return item.Content
		}
	}
	for _, item := range results {
		if strings.Contains(strings.ToLower(item.Label()), "score") && item.Content != "" {
			return item.Content
		}
	}
	return ""
}
