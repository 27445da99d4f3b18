package model

// Table is an ordered set of rows with a fixed column set.
// It is what every pipeline hands to the output writers.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// LabColumns are the display columns of an extracted lab report.
var LabColumns = []string{"Test Name", "Desired Range", "Result"}

// NewLabTable renders lab records as a table.
func NewLabTable(records []LabResultRecord) Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.TestName, r.DesiredRange, r.Result})
	}
	return Table{Columns: LabColumns, Rows: rows}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Records returns each row as a column-keyed map, in row order.
func (t Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}
