package model

// PageElement is one element read from a rendered portal page.
type PageElement struct {
	// Tag is the lowercased tag name.
	Tag string `json:"tag"`

	// Text is the element's rendered text.
	Text string `json:"text"`

	// Fields holds, per field selector, the texts of the matching descendants.
	Fields [][]string `json:"fields"`
}

// Field returns the texts matched by the i-th field selector.
func (e PageElement) Field(i int) []string {
	if i < 0 || i >= len(e.Fields) {
		return nil
	}
	return e.Fields[i]
}

// Biomarker is one blood test result read from a results page.
type Biomarker struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Value    string `json:"value"`
	Units    string `json:"units"`
}

// BiomarkerColumns are the display columns of a biomarker table.
var BiomarkerColumns = []string{"Category", "Biomarker", "Status", "Value", "Units"}

// NewBiomarkerTable renders biomarkers as a table.
func NewBiomarkerTable(biomarkers []Biomarker) Table {
	rows := make([][]string, 0, len(biomarkers))
	for _, b := range biomarkers {
		rows = append(rows, []string{b.Category, b.Name, b.Status, b.Value, b.Units})
	}
	return Table{Columns: BiomarkerColumns, Rows: rows}
}
