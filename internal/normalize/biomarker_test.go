package normalize

import (
	"testing"

	"github.com/nao1215/biosnap/internal/model"
)

func result(name string, values []string, units ...string) model.PageElement {
	fields := [][]string{{name}, values}
	if len(units) > 0 {
		fields = append(fields, units)
	} else {
		fields = append(fields, nil)
	}
	return model.PageElement{Tag: "div", Fields: fields}
}

// TestBiomarkers tests parsing of scraped results pages.
func TestBiomarkers(t *testing.T) {
	t.Parallel()

	t.Run("results take the category of the header above them", func(t *testing.T) {
		t.Parallel()

		elements := []model.PageElement{
			{Tag: "h4", Text: " Heart \n"},
			result("LDL Cholesterol", []string{"Out of Range", "142", "mg/dL"}),
			result("ApoB", []string{"In Range", "80"}),
			{Tag: "H4", Text: "Thyroid"},
			result("TSH", []string{"1.9"}, "mIU/L"),
		}

		got := Biomarkers(elements, "h4")
		want := []model.Biomarker{
			{Category: "Heart", Name: "LDL Cholesterol", Status: "Out of Range", Value: "142", Units: "mg/dL"},
			{Category: "Heart", Name: "ApoB", Status: "In Range", Value: "80"},
			{Category: "Thyroid", Name: "TSH", Value: "1.9", Units: "mIU/L"},
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d rows, got %+v", len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("units element overrides units from the values", func(t *testing.T) {
		t.Parallel()

		got := Biomarkers([]model.PageElement{
			result("Ferritin", []string{"In Range", "120", "ng"}, "ng/mL"),
		}, "h4")
		if len(got) != 1 || got[0].Units != "ng/mL" {
			t.Errorf("unexpected rows %+v", got)
		}
	})

	t.Run("results without a name are skipped", func(t *testing.T) {
		t.Parallel()

		got := Biomarkers([]model.PageElement{
			{Tag: "div"},
			result("  ", []string{"5"}),
			result("Iron", nil),
		}, "h4")
		if len(got) != 1 || got[0].Name != "Iron" || got[0].Value != "" {
			t.Errorf("unexpected rows %+v", got)
		}
	})

	t.Run("unexpected value counts leave the values blank", func(t *testing.T) {
		t.Parallel()

		got := Biomarkers([]model.PageElement{
			result("Lead", []string{"a", "b", "c", "d"}),
		}, "h4")
		if len(got) != 1 || got[0].Status != "" || got[0].Value != "" || got[0].Units != "" {
			t.Errorf("unexpected rows %+v", got)
		}
	})

	t.Run("results before any header have no category", func(t *testing.T) {
		t.Parallel()

		got := Biomarkers([]model.PageElement{result("Glucose", []string{"In Range", "88", "mg/dL"})}, "h4")
		if len(got) != 1 || got[0].Category != "" {
			t.Errorf("unexpected rows %+v", got)
		}
	})
}
