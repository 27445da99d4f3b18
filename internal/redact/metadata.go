package redact

import (
	"maps"
	"regexp"
	"slices"
	"strings"
)

// identifyingInfoKeys are document information entries that commonly carry the
// patient's or author's name. They are removed from redacted output.
var identifyingInfoKeys = []string{"Author", "Title", "Subject", "Keywords", "Creator"}

var metadataPatterns = map[string]*regexp.Regexp{
	"author":      regexp.MustCompile(`/Author\s*\(((?:\\.|[^\\)])*)\)|/Author\s*<([^>]+)>`),
	"title":       regexp.MustCompile(`/Title\s*\(((?:\\.|[^\\)])*)\)|/Title\s*<([^>]+)>`),
	"subject":     regexp.MustCompile(`/Subject\s*\(((?:\\.|[^\\)])*)\)|/Subject\s*<([^>]+)>`),
	"keywords":    regexp.MustCompile(`/Keywords\s*\(((?:\\.|[^\\)])*)\)|/Keywords\s*<([^>]+)>`),
	"creator":     regexp.MustCompile(`/Creator\s*\(((?:\\.|[^\\)])*)\)|/Creator\s*<([^>]+)>`),
	"xmp_creator": regexp.MustCompile(`<dc:creator[^>]*>.*?<rdf:li[^>]*>([^<]+)</rdf:li>`),
}

// Metadata scans raw PDF bytes for identifying metadata and returns the values found,
// keyed by field name. Only uncompressed objects are visible to it.
func Metadata(data []byte) map[string]string {
	content := string(data)
	out := make(map[string]string)
	for field, pattern := range metadataPatterns {
		m := pattern.FindStringSubmatch(content)
		for _, v := range m[min(1, len(m)):] {
			if v != "" {
				out[field] = decodePDFString(v)
				break
			}
		}
	}
	return out
}

// MetadataFields returns the sorted names of identifying metadata fields in data.
func MetadataFields(data []byte) []string {
	return slices.Sorted(maps.Keys(Metadata(data)))
}

// decodePDFString decodes a literal or UTF-16BE hex PDF string.
func decodePDFString(s string) string {
	if strings.HasPrefix(s, "FEFF") || strings.HasPrefix(s, "feff") {
		return decodeUTF16Hex(s[4:])
	}
	r := strings.NewReplacer(`\n`, "\n", `\r`, "\r", `\t`, "\t", `\(`, "(", `\)`, ")", `\\`, `\`)
	return strings.TrimSpace(r.Replace(s))
}

func decodeUTF16Hex(hex string) string {
	var sb strings.Builder
	for i := 0; i+3 < len(hex); i += 4 {
		var c rune
		for j := range 4 {
			c <<= 4
			switch d := hex[i+j]; {
			case d >= '0' && d <= '9':
				c |= rune(d - '0')
			case d >= 'a' && d <= 'f':
				c |= rune(d - 'a' + 10)
			case d >= 'A' && d <= 'F':
				c |= rune(d - 'A' + 10)
			}
		}
		if c > 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
