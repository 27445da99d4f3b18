package normalize

import (
	"strings"

	"github.com/nao1215/biosnap/internal/model"
)

// Field positions of a scraped result, as ordered by config.ScrapeConfig.Fields.
const (
	fieldName = iota
	fieldValues
	fieldUnits
)

// Biomarkers turns scraped page elements into biomarker rows.
//
// Elements whose tag is headerTag set the category of the results after them.
// Every other element is a result: its name comes from the first name match
// and results without a name are skipped. The value texts are read as
// status, value and units when there are three, status and value when there
// are two, and value alone when there is one. A units match overrides the
// units from the values.
func Biomarkers(elements []model.PageElement, headerTag string) []model.Biomarker {
	var out []model.Biomarker
	category := ""
	for _, el := range elements {
		if headerTag != "" && strings.EqualFold(el.Tag, headerTag) {
			category = collapse(el.Text)
			continue
		}

		names := el.Field(fieldName)
		if len(names) == 0 || collapse(names[0]) == "" {
			continue
		}
		b := model.Biomarker{Category: category, Name: collapse(names[0])}

		values := el.Field(fieldValues)
		switch len(values) {
		case 3:
			b.Status, b.Value, b.Units = collapse(values[0]), collapse(values[1]), collapse(values[2])
		case 2:
			b.Status, b.Value = collapse(values[0]), collapse(values[1])
		case 1:
			b.Value = collapse(values[0])
		}
		if units := el.Field(fieldUnits); len(units) > 0 {
			b.Units = collapse(units[0])
		}
		out = append(out, b)
	}
	return out
}

// collapse trims s and folds inner whitespace runs, which rendered text keeps
// from line breaks in the markup.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
