package redact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/biosnap/internal/config"
)

// Kind selects a document profile.
type Kind string

const (
	// KindPhysician is a physician-authored imaging report with a labeled patient header.
	KindPhysician Kind = "physician"
	// KindDiagnostic is a provider-generated diagnostic summary with footer branding.
	KindDiagnostic Kind = "diagnostic"
)

// Kinds lists the supported document kinds.
var Kinds = []Kind{KindPhysician, KindDiagnostic}

// ParseKind converts a command-line value into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Target is what a pattern match redacts.
type Target int

const (
	// TargetMatch redacts every occurrence of the matched text on the page.
	TargetMatch Target = iota
	// TargetBlock redacts each text block whose text matches.
	TargetBlock
	// TargetPrecedingBlock redacts the block before the first block that matches.
	TargetPrecedingBlock
)

// String returns the target name.
func (t Target) String() string {
	switch t {
	case TargetMatch:
		return "match"
	case TargetBlock:
		return "block"
	case TargetPrecedingBlock:
		return "preceding-block"
	default:
		return "unknown"
	}
}

// Pattern is one redaction rule.
type Pattern struct {
	// Name identifies the rule in logs.
	Name string

	// Regexp is matched against page text, or block text for block targets.
	Regexp *regexp.Regexp

	// FirstPages limits the rule to the first N pages. Zero means every page.
	FirstPages int

	// Target selects what a match redacts.
	Target Target
}

// appliesTo reports whether the pattern runs on 0-based page index i.
func (p Pattern) appliesTo(i int) bool {
	return p.FirstPages == 0 || i < p.FirstPages
}

// Profile is the ordered rule set for one document kind.
type Profile struct {
	Kind     Kind
	Patterns []Pattern

	// PatientPages is how many leading pages are searched for a labeled patient name.
	// Zero disables discovery.
	PatientPages int

	// SparsePageLines drops a leading page with fewer text lines than this,
	// when the document has more than one page. Zero disables it.
	SparsePageLines int
}

func match(name, expr string) Pattern {
	return Pattern{Name: name, Regexp: regexp.MustCompile(expr), Target: TargetMatch}
}

// PhysicianProfile returns the rules for physician-authored imaging reports.
func PhysicianProfile() Profile {
	return Profile{
		Kind:         KindPhysician,
		PatientPages: 3,
		Patterns: []Pattern{
			match("scan-time", `Time of scan:\s?.*`),
			match("sex", `Sex:\s?.*`),
			match("gender-word", `\b(Male|Female|Other|Non-Binary|Transgender|Intersex)\b`),
			match("height", `Height:\s?.*`),
			match("weight", `Weight:\s?.*`),
			match("date-of-birth", `Date of Birth:\s?.*`),
			match("iso-date", `\b\d{4}-\d{2}-\d{2}\b`),
			match("facility", `Facility:\s?.*`),
			match("patient", `Patient:\s?.*`),
			match("study-id", `Study:\s?[a-f0-9\-]{36}`),
			match("recipients", `REPORT RECIPIENT\(S\):\s?.*`),
		},
	}
}

// DiagnosticProfile returns the rules for provider-generated diagnostic summaries.
func DiagnosticProfile() Profile {
	first := func(p Pattern) Pattern {
		p.FirstPages = 1
		return p
	}
	block := func(name, expr string, target Target, firstPages int) Pattern {
		return Pattern{Name: name, Regexp: regexp.MustCompile(expr), Target: target, FirstPages: firstPages}
	}
	return Profile{
		Kind:            KindDiagnostic,
		SparsePageLines: 5,
		Patterns: []Pattern{
			first(match("sex", `Sex:\s*\w+`)),
			first(match("age", `Age:\s*\d+`)),
			first(match("url", `https?://[^\s]+`)),
			first(match("www", `www\.[^\s]+`)),
			block("name-block", `Age:`, TargetPrecedingBlock, 1),
			block("identifiers", `ID#:|Collected:|Reported:`, TargetBlock, 1),
			block("footer", `PROVIDED BY:|trudiagnostic\.com|trudiagnostic/apireports\.aspx`, TargetBlock, 0),
		},
	}
}

// ProfileFor returns the built-in profile for kind.
func ProfileFor(kind Kind) (Profile, error) {
	switch kind {
	case KindPhysician:
		return PhysicianProfile(), nil
	case KindDiagnostic:
		return DiagnosticProfile(), nil
	default:
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// WithExtra appends configured patterns that apply to the profile's kind.
// Patterns are expected to have been validated by the config loader.
func (p Profile) WithExtra(extra []config.PatternConfig) (Profile, error) {
	out := p
	out.Patterns = append([]Pattern(nil), p.Patterns...)
	for _, pc := range extra {
		if pc.Kind != "" && Kind(strings.ToLower(pc.Kind)) != p.Kind {
			continue
		}
		re, err := regexp.Compile(pc.Regexp)
		if err != nil {
			return Profile{}, fmt.Errorf("pattern %q: %w", pc.Name, err)
		}
		target := TargetMatch
		if pc.Block {
			target = TargetBlock
		}
		out.Patterns = append(out.Patterns, Pattern{
			Name:       pc.Name,
			Regexp:     re,
			FirstPages: pc.FirstPages,
			Target:     target,
		})
	}
	return out, nil
}

// patientLabel finds a capitalized multi-word name after "Patient:".
// Words are separated by horizontal whitespace only, so the name never runs
// into the next line.
var patientLabel = regexp.MustCompile(`Patient:[ \t]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)`)

// patientPatterns returns rules for a discovered patient name.
// The bare name is matched case-insensitively since headers often repeat it in capitals.
func patientPatterns(name string) []Pattern {
	quoted := regexp.QuoteMeta(name)
	return []Pattern{
		match("patient-name", `(?i)\b`+quoted+`\b`),
		match("patient-label", `Patient:\s*`+quoted),
	}
}

// namePatterns returns case-insensitive literal rules for denylisted names.
func namePatterns(names []string) []Pattern {
	out := make([]Pattern, 0, len(names))
	for _, n := range names {
		out = append(out, Pattern{
			Name:   "denylist",
			Regexp: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(n)),
			Target: TargetMatch,
		})
	}
	return out
}
