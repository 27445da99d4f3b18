package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampKeys are the JSON keys a portal report may carry its creation time under,
// in order of preference. The portal API is undocumented and has used more than one.
var timestampKeys = []string{"createdAt", "created_at", "createdDate", "reportDate", "completedAt"}

// timestampLayouts are tried in order when parsing a report timestamp.
// Timestamps without a zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// RawReport is one structured report returned by a portal data API.
// Only the fields the pipeline consumes are decoded; everything else is ignored
// so that additive changes on the portal side do not break decoding.
type RawReport struct {
	// ID identifies the report on the portal. It may be empty.
	ID string `json:"id,omitempty"`

	// CreatedAt is the report creation time in UTC.
	// Zero when the portal omitted or garbled the timestamp.
	CreatedAt time.Time `json:"created_at"`

	// RawCreatedAt is the timestamp text exactly as the portal sent it.
	RawCreatedAt string `json:"raw_created_at,omitempty"`

	// Sections are the report's body sections in portal order.
	Sections []Section `json:"body_sections"`
}

// Section is a titled group of results inside a RawReport.
type Section struct {
	// Title is the display title, also used as the row category.
	Title string `json:"title"`

	// AnchorID links marker sections to their insight sections,
	// e.g. "digestion_markers" pairs with "digestion_insights".
	AnchorID string `json:"anchorId"`

	// Content is free text, usually HTML, attached to the section itself.
	Content string `json:"content"`

	// Results are the section's result items.
	Results []ResultItem `json:"results"`
}

// ResultItem is one scored result inside a Section.
type ResultItem struct {
	// Title is the display title; some portals send Name instead.
	Title string `json:"title"`

	// Name is the fallback label when Title is empty.
	Name string `json:"name"`

	// Value is valueNumeric when the portal sent that key, value otherwise.
	Value Value `json:"value"`

	// Risk is the portal's risk classification, e.g. "OPTIMAL".
	Risk string `json:"riskClassification"`

	// Content is free text, often HTML, that may describe a reference range.
	Content string `json:"content"`
}

// Label returns Title, falling back to Name, trimmed.
func (r ResultItem) Label() string {
	if t := strings.TrimSpace(r.Title); t != "" {
		return t
	}
	return strings.TrimSpace(r.Name)
}

// UnmarshalJSON decodes a result item. valueNumeric takes precedence over value
// whenever the key is present, even when it is null.
func (r *ResultItem) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.Title = rawString(fields["title"])
	r.Name = rawString(fields["name"])
	r.Risk = rawString(fields["riskClassification"])
	r.Content = rawString(fields["content"])

	raw, ok := fields["valueNumeric"]
	if !ok {
		raw = fields["value"]
	}
	r.Value = Value{}
	if len(raw) > 0 {
		if err := r.Value.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("result %q: %w", r.Label(), err)
		}
	}
	return nil
}

// UnmarshalJSON decodes a report, accepting several timestamp keys and a numeric or
// string identifier.
func (rr *RawReport) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	rr.ID = rawString(fields["id"])

	rr.RawCreatedAt = ""
	rr.CreatedAt = time.Time{}
	for _, key := range timestampKeys {
		if s := rawString(fields[key]); s != "" {
			rr.RawCreatedAt = s
			rr.CreatedAt = ParseTimestamp(s)
			break
		}
	}

	rr.Sections = nil
	if raw, ok := fields["bodySections"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &rr.Sections); err != nil {
			return fmt.Errorf("bodySections: %w", err)
		}
	}
	return nil
}

// ParseTimestamp parses a portal timestamp into UTC.
// It returns the zero time when no known layout matches.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

// rawString renders a raw JSON scalar as text. Strings are unquoted, numbers keep
// their literal form, null and missing values become "".
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Value is a portal result value: a number, a string, or absent.
type Value struct {
	text    string
	number  float64
	numeric bool
	present bool
}

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value {
	return Value{text: strconv.FormatFloat(f, 'f', -1, 64), number: f, numeric: true, present: true}
}

// TextValue returns a textual Value. Text that parses as a number is numeric.
func TextValue(s string) Value {
	v := Value{text: s, present: true}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		v.number = f
		v.numeric = true
	}
	return v
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{}
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || isNull(data):
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", data, err)
		}
		*v = NumberValue(f)
	default:
		*v = Value{text: string(data), present: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case !v.present:
		return []byte("null"), nil
	case v.numeric:
		return json.Marshal(v.number)
	default:
		return json.Marshal(v.text)
	}
}

// IsNull reports whether the value was absent or null.
func (v Value) IsNull() bool { return !v.present }

// IsNumeric reports whether the value is a number or numeric text.
func (v Value) IsNumeric() bool { return v.numeric }

// HasValue reports whether the value is present and not blank.
func (v Value) HasValue() bool {
	return v.present && strings.TrimSpace(v.String()) != ""
}

// Float returns the numeric value.
func (v Value) Float() (float64, bool) { return v.number, v.numeric }

// String renders the value for tabular output. Numbers use the shortest exact form.
func (v Value) String() string {
	if !v.present {
		return ""
	}
	if v.numeric && v.text == "" {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}
