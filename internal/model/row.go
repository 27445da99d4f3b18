package model

import "time"

// NormalizedRow is one flattened row of a portal report.
// A section produces one header row followed by one row per child result.
type NormalizedRow struct {
	// Category is the section title.
	Category string `json:"category"`

	// Item is "" for a plain section header, CompositeItem for a detected composite
	// score, or the child result's name.
	Item string `json:"item"`

	// Score is the rendered result value.
	Score string `json:"score"`

	// Risk is the title-cased risk classification.
	Risk string `json:"risk"`

	// Summary is the section's reference-range text.
	// Only header rows of allow-listed categories carry it.
	Summary string `json:"summary"`

	// Insights is the section's narrative. At most one row per category carries it.
	Insights string `json:"insights"`
}

// CompositeItem is the Item label of a header row built from a composite score.
const CompositeItem = "Composite"

// LabResultRecord is one test result reconstructed from lab report text.
type LabResultRecord struct {
	// TestName is the line following a Result header.
	TestName string `json:"test_name"`

	// DesiredRange is the text after "desired range:".
	DesiredRange string `json:"desired_range"`

	// Result is the observed value, optionally followed by a qualifier word.
	Result string `json:"result"`
}

// AvailableTest is one selectable report, listed before an import.
type AvailableTest struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	RawDate   string    `json:"raw_date"`
	LocalDate string    `json:"local_date"`
	CreatedAt time.Time `json:"created_at"`
}
