package labparse

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nao1215/biosnap/internal/model"
)

// piiPrefixes matches demographic field labels. A "Result" header followed by one
// of these is a page header, not a test block.
var piiPrefixes = regexp.MustCompile(
	`(?i)^(name|dob|date of birth|sex|age|specimen|report status|collected date|phone|physician)\b`)

// rangeValue captures the text after the "desired range:" marker.
var rangeValue = regexp.MustCompile(`(?i)desired range\s*:\s*(.*)$`)

// qualifiers is the fixed vocabulary of categorical words that may follow a value.
var qualifiers = map[string]bool{
	"NEGATIVE":      true,
	"POSITIVE":      true,
	"LOW":           true,
	"HIGH":          true,
	"DETECTED":      true,
	"NOT DETECTED":  true,
	"REACTIVE":      true,
	"NONREACTIVE":   true,
	"INDETERMINATE": true,
}

func isHeader(line string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "result")
}

func isRange(line string) bool {
	return strings.Contains(strings.ToLower(line), "desired range")
}

func isQualifier(line string) bool {
	return qualifiers[strings.ToUpper(strings.TrimSpace(line))]
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func parseRange(line string) string {
	m := rangeValue.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Parse scans lines for "Result" blocks and returns one record per block that has
// both a test name and a desired range, in document order.
//
// A block is a header line starting with "Result", the next non-blank line as the
// test name, a later line containing "desired range", and the following non-blank
// line as the observed value, optionally followed by a qualifier line.
// Malformed blocks are skipped; the scan always continues.
func Parse(lines []string) []model.LabResultRecord {
	var out []model.LabResultRecord
	n := len(lines)
	i := 0

	skipBlank := func() {
		for i < n && isBlank(lines[i]) {
			i++
		}
	}

	for i < n {
		if !isHeader(lines[i]) {
			i++
			continue
		}

		i++
		skipBlank()
		if i >= n {
			break
		}

		name := strings.TrimSpace(lines[i])
		if piiPrefixes.MatchString(name) {
			i++
			continue
		}

		i++
		for i < n && !isRange(lines[i]) && !isHeader(lines[i]) {
			i++
		}
		if i >= n || isHeader(lines[i]) {
			// Abandoned block; resume at the interrupting header, if any.
			continue
		}

		desired := parseRange(lines[i])
		i++

		var observed []string
		skipBlank()
		if i < n && !isHeader(lines[i]) && !isRange(lines[i]) {
			observed = append(observed, strings.TrimSpace(lines[i]))
			i++
		}
		if i < n && isQualifier(lines[i]) {
			observed = append(observed, strings.TrimSpace(lines[i]))
			i++
		}

		if name == "" || desired == "" {
			continue
		}
		out = append(out, model.LabResultRecord{
			TestName:     name,
			DesiredRange: desired,
			Result:       Humanize(strings.Join(observed, " ")),
		})
	}
	return out
}

// Humanize rewrites every all-uppercase alphabetic token in title form
// ("NEGATIVE" becomes "Negative") and leaves other tokens untouched.
// Tokens are re-joined with single spaces.
func Humanize(text string) string {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if isUpperWord(tok) {
			runes := []rune(strings.ToLower(tok))
			runes[0] = unicode.ToUpper(runes[0])
			tokens[i] = string(runes)
		}
	}
	return strings.Join(tokens, " ")
}

// isUpperWord reports whether tok is made of letters only, at least one of them
// uppercase and none lowercase.
func isUpperWord(tok string) bool {
	upper := false
	for _, r := range tok {
		if !unicode.IsLetter(r) || unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper = true
		}
	}
	return upper
}
