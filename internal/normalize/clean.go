package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	xhtml "golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// referencesBlock matches the citation list portals append to narrative text.
var referencesBlock = regexp.MustCompile(`(?s)<div class="references".*$`)

// CleanText turns portal markup into plain text: entities are decoded, a trailing
// references block is dropped, tags are removed with their text joined by spaces,
// and whitespace is collapsed.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = html.UnescapeString(text)
	text = referencesBlock.ReplaceAllString(text, "")

	var parts []string
	z := xhtml.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			// io.EOF at the end of input; a strings.Reader fails no other way.
			break
		}
		if tt == xhtml.TextToken {
			parts = append(parts, string(z.Text()))
		}
	}

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// TitleSegments title-cases every run of letters on its own, so separators such
// as underscores start a new word: NEEDS_ATTENTION becomes Needs_Attention.
func TitleSegments(s string) string {
	title := cases.Title(language.English)

	var b strings.Builder
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(title.String(s[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(title.String(s[start:]))
	}
	return b.String()
}
