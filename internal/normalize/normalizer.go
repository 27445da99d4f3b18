package normalize

import (
	"slices"
	"strings"


	"github.com/nao1215/biosnap/internal/model"
)

// SummaryCategories are the categories whose header row keeps its summary text.
// Other categories' summaries are usually per-microbe boilerplate.
var SummaryCategories = []string{
	"Digestion",
	"Inflammation",
	"Gut Dysbiosis",
	"Intestinal Permeability",
	"Nervous System",
	"Diversity Score",
	"Immune Readiness Score",
	"Pathogens",
}

// Columns are the display columns of a normalized report.
var Columns = []string{"Category", "Microbe", "Score", "Risk", "Summary", "Insights"}

// Normalize flattens a report into rows.
//
// Every section with results yields a header row, then one row per child result.
// The header row carries the section's composite score if one is detected, its
// summary (allow-listed categories only) and its insights. Insights appear on at
// most one row per category.
func Normalize(report model.RawReport) []model.NormalizedRow {
	var rows []model.NormalizedRow
	for _, sec := range report.Sections {
		if len(sec.Results) == 0 {
			continue
		}

		header := model.NormalizedRow{
			Category: sec.Title,
			Summary:  PickSectionSummary(sec.Results),
			Insights: strings.TrimSpace(insightsFor(report.Sections, sec)),
		}

		comp := FindComposite(sec.Results, sec.Title)
		if comp >= 0 {
			header.Item = model.CompositeItem
			header.Score = sec.Results[comp].Value.String()
			header.Risk = sec.Results[comp].Risk
		}
		rows = append(rows, header)

		for i, item := range sec.Results {
			if i == comp {
				continue
			}
			name := item.Label()
			if name == "" {
				continue
			}
			rows = append(rows, model.NormalizedRow{
				Category: sec.Title,
				Item:     name,
				Score:    item.Value.String(),
				Risk:     item.Risk,
			})
		}
	}

	seen := make(map[string]bool)
	for i := range rows {
		r := &rows[i]
		r.Risk = TitleSegments(r.Risk)
		r.Summary = CleanText(r.Summary)
		r.Insights = CleanText(r.Insights)

		if r.Insights != "" {
			if seen[r.Category] {
				r.Insights = ""
			} else {
				seen[r.Category] = true
			}
		}
		if !slices.Contains(SummaryCategories, r.Category) {
			r.Summary = ""
		}
	}
	return rows
}

// insightsFor returns the content of the section paired with sec by anchor:
// "x_markers" pairs with "x_insights". A section whose anchor has no "_markers"
// suffix pairs with the first section sharing its anchor.
func insightsFor(sections []model.Section, sec model.Section) string {
	if sec.AnchorID == "" {
		return ""
	}
	target := strings.ReplaceAll(sec.AnchorID, "_markers", "_insights")
	for _, s := range sections {
		if s.AnchorID == target {
			return s.Content
		}
	}
	return ""
}

// Table renders normalized rows with the display columns.
func Table(rows []model.NormalizedRow) model.Table {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Category, r.Item, r.Score, r.Risk, r.Summary, r.Insights})
	}
	return model.Table{Columns: Columns, Rows: out}
}
