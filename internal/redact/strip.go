package redact

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/nao1215/biosnap/internal/pdftext"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func translate(x, y float64) matrix {
	return matrix{1, 0, 0, 1, x, y}
}

// mul returns m × n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
}

// fontWidths holds the glyph widths of one font, in thousandths of text space.
type fontWidths struct {
	twoByte bool
	first   int
	widths  []float64
	cids    map[int]float64
	missing float64
}

// fallbackWidths is used when a font cannot be resolved.
var fallbackWidths = &fontWidths{missing: 500}

// codes splits a shown string into character codes.
func (f *fontWidths) codes(s []byte) [][]byte {
	n := 1
	if f.twoByte {
		n = 2
	}
	out := make([][]byte, 0, len(s)/n+1)
	for i := 0; i < len(s); i += n {
		out = append(out, s[i:min(i+n, len(s))])
	}
	return out
}

func (f *fontWidths) width(code []byte) float64 {
	c := 0
	for _, b := range code {
		c = c<<8 | int(b)
	}
	if f.twoByte {
		if w, ok := f.cids[c]; ok {
			return w
		}
		return f.missing
	}
	if i := c - f.first; i >= 0 && i < len(f.widths) {
		return f.widths[i]
	}
	return f.missing
}

// graphicsState is the part of the PDF graphics state that positions text.
type graphicsState struct {
	ctm     matrix
	font    *fontWidths
	size    float64
	charSp  float64
	wordSp  float64
	scale   float64
	leading float64
	rise    float64
}

// textStripper removes the glyphs whose centers lie inside any mark from a
// page content stream. Every removed glyph becomes a TJ displacement of the
// same advance, so the glyphs that remain keep their positions.
type textStripper struct {
	marks   []pdftext.Rect
	fonts   map[string]*fontWidths
	state   graphicsState
	saved   []graphicsState
	tm, tlm matrix
	removed int
}

func newTextStripper(marks []pdftext.Rect, fonts map[string]*fontWidths) *textStripper {
	return &textStripper{
		marks: marks,
		fonts: fonts,
		state: graphicsState{ctm: identity, scale: 1},
		tm:    identity,
		tlm:   identity,
	}
}

// strip returns the rewritten content stream.
func (s *textStripper) strip(content []byte) ([]byte, error) {
	instructions, err := parseInstructions(content)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	for _, in := range instructions {
		s.exec(&out, in)
	}
	return out.Bytes(), nil
}

func (s *textStripper) exec(out *bytes.Buffer, in instruction) {
	st := &s.state
	num := func(i int) float64 {
		if i < len(in.operands) && in.operands[i].kind == operandNumber {
			return in.operands[i].num
		}
		return 0
	}

	switch in.op {
	case "q":
		s.saved = append(s.saved, s.state)
	case "Q":
		if n := len(s.saved); n > 0 {
			s.state = s.saved[n-1]
			s.saved = s.saved[:n-1]
		}
	case "cm":
		if len(in.operands) == 6 {
			m := matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
			st.ctm = m.mul(st.ctm)
		}
	case "BT":
		s.tm, s.tlm = identity, identity
	case "Tf":
		if len(in.operands) == 2 && in.operands[0].kind == operandName {
			st.font = s.fonts[in.operands[0].name]
			st.size = num(1)
		}
	case "Tc":
		st.charSp = num(0)
	case "Tw":
		st.wordSp = num(0)
	case "Tz":
		st.scale = num(0) / 100
	case "TL":
		st.leading = num(0)
	case "Ts":
		st.rise = num(0)
	case "Td":
		s.moveLine(num(0), num(1))
	case "TD":
		st.leading = -num(1)
		s.moveLine(num(0), num(1))
	case "Tm":
		if len(in.operands) == 6 {
			s.tlm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
			s.tm = s.tlm
		}
	case "T*":
		s.moveLine(0, -st.leading)
	case "Tj", "TJ":
		if len(in.operands) > 0 {
			if shown, ok := s.show(showElements(in.operands[len(in.operands)-1])); ok {
				out.Write(shown)
				out.WriteByte('\n')
				return
			}
		}
	case "'":
		s.moveLine(0, -st.leading)
		if len(in.operands) > 0 {
			if shown, ok := s.show(showElements(in.operands[0])); ok {
				out.WriteString("T*\n")
				out.Write(shown)
				out.WriteByte('\n')
				return
			}
		}
	case `"`:
		if len(in.operands) == 3 {
			st.wordSp, st.charSp = num(0), num(1)
			s.moveLine(0, -st.leading)
			if shown, ok := s.show(showElements(in.operands[2])); ok {
				out.Write(in.operands[0].raw)
				out.WriteString(" Tw ")
				out.Write(in.operands[1].raw)
				out.WriteString(" Tc T*\n")
				out.Write(shown)
				out.WriteByte('\n')
				return
			}
		}
	}

	out.Write(in.raw)
	out.WriteByte('\n')
}

// showElements returns the strings and displacements of a Tj or TJ operand.
func showElements(o operand) []operand {
	if o.kind == operandArray {
		return o.items
	}
	return []operand{o}
}

func (s *textStripper) moveLine(x, y float64) {
	s.tlm = translate(x, y).mul(s.tlm)
	s.tm = s.tlm
}

// show advances the text matrix over elements. When any glyph is covered by a
// mark it returns the replacement TJ instruction.
func (s *textStripper) show(elements []operand) ([]byte, bool) {
	st := &s.state
	font := st.font
	if font == nil {
		font = fallbackWidths
	}

	var tj tjBuilder
	changed := false
	for _, e := range elements {
		switch e.kind {
		case operandNumber:
			tj.shift(e.num)
			s.advance(-e.num / 1000 * st.size * st.scale)
		case operandString:
			for _, code := range font.codes(e.str) {
				w0 := font.width(code) / 1000
				spacing := st.charSp
				if len(code) == 1 && code[0] == ' ' {
					spacing += st.wordSp
				}
				if st.size != 0 && s.covered(w0) {
					tj.shift(-(w0*st.size + spacing) * 1000 / st.size)
					changed = true
					s.removed++
				} else {
					tj.glyph(code)
				}
				s.advance((w0*st.size + spacing) * st.scale)
			}
		}
	}
	if !changed {
		return nil, false
	}
	return tj.bytes(), true
}

func (s *textStripper) advance(tx float64) {
	s.tm = translate(tx, 0).mul(s.tm)
}

// covered reports whether the center of the next glyph, of width w0 in text
// space units, lies inside a mark.
func (s *textStripper) covered(w0 float64) bool {
	st := s.state
	trm := matrix{st.size * st.scale, 0, 0, st.size, 0, st.rise}.mul(s.tm).mul(st.ctm)
	x, y := trm.apply(w0/2, pdftext.CenterRise)
	for _, r := range s.marks {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

// tjBuilder accumulates the operand of a TJ instruction, merging adjacent
// glyphs into one hex string and adjacent displacements into one number.
type tjBuilder struct {
	items   []string
	pending []byte
	shiftBy float64
	shifted bool
}

func (b *tjBuilder) glyph(code []byte) {
	b.flushShift()
	b.pending = append(b.pending, code...)
}

func (b *tjBuilder) shift(n float64) {
	b.flushGlyphs()
	b.shiftBy += n
	b.shifted = true
}

func (b *tjBuilder) flushGlyphs() {
	if len(b.pending) > 0 {
		b.items = append(b.items, "<"+hex.EncodeToString(b.pending)+">")
		b.pending = nil
	}
}

func (b *tjBuilder) flushShift() {
	if b.shifted {
		b.items = append(b.items, formatNumber(b.shiftBy))
		b.shiftBy, b.shifted = 0, false
	}
}

func (b *tjBuilder) bytes() []byte {
	b.flushGlyphs()
	b.flushShift()
	return []byte("[" + strings.Join(b.items, " ") + "] TJ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// pageFonts reads the glyph widths of every font in a page's resources.
// Fonts that cannot be read are left out and measured with fallbackWidths.
func pageFonts(ctx *model.Context, resources types.Dict) map[string]*fontWidths {
	out := make(map[string]*fontWidths)
	if resources == nil {
		return out
	}
	obj, ok := resources.Find("Font")
	if !ok {
		return out
	}
	fonts, err := ctx.DereferenceDict(obj)
	if err != nil || fonts == nil {
		return out
	}
	for name, ref := range fonts {
		fd, err := ctx.DereferenceDict(ref)
		if err != nil || fd == nil {
			continue
		}
		out[name] = readFontWidths(ctx, fd)
	}
	return out
}

func readFontWidths(ctx *model.Context, fd types.Dict) *fontWidths {
	if nameEntry(ctx, fd, "Subtype") == "Type0" {
		return readCIDWidths(ctx, fd)
	}

	f := &fontWidths{missing: fallbackWidths.missing}
	if v, ok := numberEntry(ctx, fd, "FirstChar"); ok {
		f.first = int(v)
	}
	if obj, ok := fd.Find("Widths"); ok {
		if arr, err := ctx.DereferenceArray(obj); err == nil {
			for _, o := range arr {
				w, _ := number(ctx, o)
				f.widths = append(f.widths, w)
			}
		}
	}
	return f
}

// readCIDWidths reads the DW and W entries of a composite font's descendant.
// Codes are taken to be two-byte CIDs, as with the Identity-H encoding.
func readCIDWidths(ctx *model.Context, fd types.Dict) *fontWidths {
	f := &fontWidths{twoByte: true, missing: 1000, cids: make(map[int]float64)}

	obj, ok := fd.Find("DescendantFonts")
	if !ok {
		return f
	}
	arr, err := ctx.DereferenceArray(obj)
	if err != nil || len(arr) == 0 {
		return f
	}
	cid, err := ctx.DereferenceDict(arr[0])
	if err != nil || cid == nil {
		return f
	}
	if v, ok := numberEntry(ctx, cid, "DW"); ok {
		f.missing = v
	}
	wObj, ok := cid.Find("W")
	if !ok {
		return f
	}
	w, err := ctx.DereferenceArray(wObj)
	if err != nil {
		return f
	}

	for i := 0; i+1 < len(w); {
		first, ok := number(ctx, w[i])
		if !ok {
			break
		}
		next, err := ctx.Dereference(w[i+1])
		if err != nil {
			break
		}
		if list, ok := next.(types.Array); ok {
			for j, o := range list {
				if v, ok := number(ctx, o); ok {
					f.cids[int(first)+j] = v
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			break
		}
		last, ok1 := number(ctx, w[i+1])
		v, ok2 := number(ctx, w[i+2])
		if !ok1 || !ok2 || last < first || last-first > math.MaxUint16 {
			break
		}
		for c := int(first); c <= int(last); c++ {
			f.cids[c] = v
		}
		i += 3
	}
	return f
}

func number(ctx *model.Context, o types.Object) (float64, bool) {
	o, err := ctx.Dereference(o)
	if err != nil {
		return 0, false
	}
	switch v := o.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func numberEntry(ctx *model.Context, d types.Dict, key string) (float64, bool) {
	o, ok := d.Find(key)
	if !ok {
		return 0, false
	}
	return number(ctx, o)
}

func nameEntry(ctx *model.Context, d types.Dict, key string) string {
	o, ok := d.Find(key)
	if !ok {
		return ""
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return ""
	}
	if n, ok := o.(types.Name); ok {
		return string(n)
	}
	return ""
}
