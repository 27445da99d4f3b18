package redact

import (
	"errors"
	"slices"
	"testing"
)

func opNames(ins []instruction) []string {
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.op)
	}
	return names
}

// TestParseInstructions tests content stream tokenizing.
func TestParseInstructions(t *testing.T) {
	t.Parallel()

	t.Run("reads text operators and their operands", func(t *testing.T) {
		t.Parallel()

		ins, err := parseInstructions([]byte(`BT /F1 10 Tf (a\(b\)) Tj <4142> Tj [(x) -250 (y)] TJ ET`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(opNames(ins), []string{"BT", "Tf", "Tj", "Tj", "TJ", "ET"}) {
			t.Fatalf("unexpected operators %v", opNames(ins))
		}
		if tf := ins[1].operands; tf[0].name != "F1" || tf[1].num != 10 {
			t.Errorf("unexpected Tf operands %+v", tf)
		}
		if got := string(ins[2].operands[0].str); got != "a(b)" {
			t.Errorf("literal string = %q, want %q", got, "a(b)")
		}
		if got := string(ins[3].operands[0].str); got != "AB" {
			t.Errorf("hex string = %q, want %q", got, "AB")
		}
		if items := ins[4].operands[0].items; len(items) != 3 || items[1].num != -250 {
			t.Errorf("unexpected TJ array %+v", items)
		}
		if string(ins[4].raw) != "[(x) -250 (y)] TJ" {
			t.Errorf("raw bytes not kept: %q", ins[4].raw)
		}
	})

	t.Run("decodes octal escapes and name escapes", func(t *testing.T) {
		t.Parallel()

		ins, err := parseInstructions([]byte(`/F#31 12 Tf (\101\tB) Tj`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ins[0].operands[0].name != "F1" {
			t.Errorf("name = %q, want F1", ins[0].operands[0].name)
		}
		if got := string(ins[1].operands[0].str); got != "A\tB" {
			t.Errorf("string = %q, want %q", got, "A\tB")
		}
	})

	t.Run("skips dictionaries comments and inline images", func(t *testing.T) {
		t.Parallel()

		content := "% header\n/P <</MCID 0>> BDC (z) Tj EMC q BI /W 1 /H 1 /BPC 8 /CS /G ID \xff EI Q"
		ins, err := parseInstructions([]byte(content))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(opNames(ins), []string{"BDC", "Tj", "EMC", "q", "BI", "Q"}) {
			t.Errorf("unexpected operators %v", opNames(ins))
		}
		if len(ins[0].operands) != 2 {
			t.Errorf("expected BDC with 2 operands, got %d", len(ins[0].operands))
		}
	})

	tests := []struct {
		name    string
		content string
	}{
		{name: "unterminated string", content: `(abc Tj`},
		{name: "stray bracket", content: `] Tj`},
		{name: "bad hex", content: `<zz> Tj`},
		{name: "inline image without end", content: `BI /W 1 ID abc`},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := parseInstructions([]byte(tt.content)); !errors.Is(err, ErrContentSyntax) {
				t.Errorf("expected ErrContentSyntax, got %v", err)
			}
		})
	}
}
