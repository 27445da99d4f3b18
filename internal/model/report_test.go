package model

import (
	"encoding/json"
	"testing"
	"time"
)

// TestRawReportUnmarshal tests decoding of portal reports.
func TestRawReportUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("decodes sections and results", func(t *testing.T) {
		t.Parallel()

		raw := `{
			"id": 42,
			"createdAt": "2025-03-14T18:30:00Z",
			"unknownField": {"ignored": true},
			"bodySections": [
				{"title": "Pathogens", "anchorId": "pathogens_markers", "content": "<p>x</p>",
				 "results": [{"title": "C. diff", "value": "0", "riskClassification": "OPTIMAL", "content": "c"}]}
			]
		}`

		var r RawReport
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.ID != "42" {
			t.Errorf("expected id 42, got %q", r.ID)
		}
		want := time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)
		if !r.CreatedAt.Equal(want) {
			t.Errorf("expected %v, got %v", want, r.CreatedAt)
		}
		if len(r.Sections) != 1 || len(r.Sections[0].Results) != 1 {
			t.Fatalf("unexpected sections %+v", r.Sections)
		}
		item := r.Sections[0].Results[0]
		if item.Title != "C. diff" || item.Risk != "OPTIMAL" || item.Value.String() != "0" {
			t.Errorf("unexpected item %+v", item)
		}
	})

	t.Run("accepts alternative timestamp keys", func(t *testing.T) {
		t.Parallel()

		var r RawReport
		if err := json.Unmarshal([]byte(`{"created_at":"2025-01-02 03:04:05"}`), &r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.CreatedAt.IsZero() || r.RawCreatedAt != "2025-01-02 03:04:05" {
			t.Errorf("expected timestamp, got %v (%q)", r.CreatedAt, r.RawCreatedAt)
		}
	})

	t.Run("missing bodySections yields no sections", func(t *testing.T) {
		t.Parallel()

		var r RawReport
		if err := json.Unmarshal([]byte(`{"bodySections":null}`), &r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Sections != nil {
			t.Errorf("expected nil sections, got %+v", r.Sections)
		}
	})

	t.Run("non-object is an error", func(t *testing.T) {
		t.Parallel()

		var r RawReport
		if err := json.Unmarshal([]byte(`"just a string"`), &r); err == nil {
			t.Error("expected error for string payload")
		}
	})
}

// TestResultItemValuePrecedence tests valueNumeric versus value.
func TestResultItemValuePrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantStr  string
		wantNull bool
		wantNum  bool
	}{
		{name: "value only", raw: `{"value":"12.5"}`, wantStr: "12.5", wantNum: true},
		{name: "valueNumeric wins", raw: `{"value":"high","valueNumeric":3}`, wantStr: "3", wantNum: true},
		{name: "null valueNumeric still wins", raw: `{"value":"high","valueNumeric":null}`, wantNull: true},
		{name: "text value", raw: `{"value":"Detected"}`, wantStr: "Detected"},
		{name: "neither", raw: `{"title":"x"}`, wantNull: true},
		{name: "negative float", raw: `{"valueNumeric":-0.25}`, wantStr: "-0.25", wantNum: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var item ResultItem
			if err := json.Unmarshal([]byte(tt.raw), &item); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if item.Value.IsNull() != tt.wantNull {
				t.Errorf("IsNull() = %v, want %v", item.Value.IsNull(), tt.wantNull)
			}
			if item.Value.IsNumeric() != tt.wantNum {
				t.Errorf("IsNumeric() = %v, want %v", item.Value.IsNumeric(), tt.wantNum)
			}
			if item.Value.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", item.Value.String(), tt.wantStr)
			}
		})
	}
}

// TestValue tests Value helpers.
func TestValue(t *testing.T) {
	t.Parallel()

	t.Run("HasValue is false for blank text", func(t *testing.T) {
		t.Parallel()
		if TextValue("  ").HasValue() {
			t.Error("expected blank text to have no value")
		}
	})

	t.Run("zero is a value", func(t *testing.T) {
		t.Parallel()
		if !NumberValue(0).HasValue() {
			t.Error("expected 0 to be a value")
		}
	})

	t.Run("marshals back to JSON", func(t *testing.T) {
		t.Parallel()

		b, err := json.Marshal([]Value{NumberValue(2), TextValue("x"), {}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `[2,"x",null]` {
			t.Errorf("unexpected JSON %s", b)
		}
	})
}

// TestParseTimestamp tests timestamp layouts.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-14T18:30:00Z", time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)},
		{"2025-03-14T11:30:00-07:00", time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)},
		{"2025-03-14T18:30:00.123456", time.Date(2025, 3, 14, 18, 30, 0, 123456000, time.UTC)},
		{"2025-03-14", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"1741977000000", time.UnixMilli(1741977000000).UTC()},
		{"yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := ParseTimestamp(tt.in); !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
