package redact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/biosnap/internal/pdftext"
)

// Plan is the set of marks to apply to a document, computed before any page is modified.
type Plan struct {
	// Pages holds the marks of each page, indexed from 0. Marks are unique per page.
	Pages [][]pdftext.Rect

	// Hits counts marks per rule name.
	Hits map[string]int

	// Patient is the patient name discovered on the leading pages, if any.
	Patient string
}

// Marks returns the total number of marks in the plan.
func (p Plan) Marks() int {
	n := 0
	for _, rects := range p.Pages {
		n += len(rects)
	}
	return n
}

// BuildPlan runs the profile's patterns over every page of doc and returns the marks.
// It does not touch the document.
//
// Matched text is redacted wherever it occurs on the page, compared case-insensitively,
// so a value found once under a label is also covered where it appears unlabeled.
func BuildPlan(doc *pdftext.Document, profile Profile, names []string) Plan {
	plan := Plan{
		Pages: make([][]pdftext.Rect, len(doc.Pages)),
		Hits:  make(map[string]int),
	}

	patterns := profile.Patterns
	if profile.PatientPages > 0 {
		if name := findPatient(doc, profile.PatientPages); name != "" {
			plan.Patient = name
			patterns = append(patterns[:len(patterns):len(patterns)], patientPatterns(name)...)
		}
	}
	patterns = append(patterns[:len(patterns):len(patterns)], namePatterns(names)...)

	for i := range doc.Pages {
		page := &doc.Pages[i]
		seen := make(map[string]bool)
		add := func(rule string, rects ...pdftext.Rect) {
			for _, r := range rects {
				if r.Empty() {
					continue
				}
				k := markKey(r)
				if seen[k] {
					continue
				}
				seen[k] = true
				plan.Pages[i] = append(plan.Pages[i], r)
				plan.Hits[rule]++
			}
		}

		text := page.Text()
		for _, p := range patterns {
			if !p.appliesTo(i) {
				continue
			}
			switch p.Target {
			case TargetMatch:
				for _, m := range p.Regexp.FindAllString(text, -1) {
					if strings.TrimSpace(m) == "" {
						continue
					}
					for _, loc := range occurrences(text, m) {
						add(p.Name, page.Rects(loc[0], loc[1])...)
					}
				}
			case TargetBlock:
				for _, b := range page.Blocks {
					if p.Regexp.MatchString(page.BlockText(b)) {
						add(p.Name, b.Box)
					}
				}
			case TargetPrecedingBlock:
				for j, b := range page.Blocks {
					if !p.Regexp.MatchString(page.BlockText(b)) {
						continue
					}
					if j > 0 {
						add(p.Name, page.Blocks[j-1].Box)
					}
					break
				}
			}
		}
	}
	return plan
}

// findPatient returns the first labeled patient name on the first n pages.
func findPatient(doc *pdftext.Document, n int) string {
	for i := 0; i < n && i < len(doc.Pages); i++ {
		if m := patientLabel.FindStringSubmatch(doc.Pages[i].Text()); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// occurrences returns the byte ranges of every case-insensitive occurrence of s in text.
func occurrences(text, s string) [][]int {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(s)).FindAllStringIndex(text, -1)
}

// markKey identifies a mark at 0.01pt precision.
func markKey(r pdftext.Rect) string {
	return fmt.Sprintf("%.2f %.2f %.2f %.2f", r.X0, r.Y0, r.X1, r.Y1)
}
