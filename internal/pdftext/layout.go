package pdftext

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"
)

// Layout thresholds, as multiples of the font size.
const (
	// baselineTolerance groups glyphs whose baselines differ by less than this into one row.
	baselineTolerance = 0.3

	// wordGap is the horizontal gap above which a space is inserted between glyphs.
	wordGap = 0.15

	// columnGap is the horizontal gap above which a row is split into separate lines.
	columnGap = 3.0

	// blockGap is the baseline distance above which consecutive lines start a new block.
	blockGap = 1.6

	// descent and ascent size a glyph box around its baseline.
	descent = 0.25
	ascent  = 0.9
)

// CenterRise is the height of a glyph box's center above the baseline,
// as a multiple of the font size.
const CenterRise = (ascent - descent) / 2

// Glyph is one positioned character as reported by the PDF reader.
// Coordinates are in default user space; Y is the baseline.
type Glyph struct {
	X, Y float64
	W    float64
	Size float64
	S    string
}

// Rect is an axis-aligned rectangle in default user space (origin bottom left).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Contains reports whether the point (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Center returns the middle of r.
func (r Rect) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// overlapsX reports whether r and o share any horizontal extent.
func (r Rect) overlapsX(o Rect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1
}

// span maps a byte range of a line's text to the box of the glyph that produced it.
type span struct {
	start, end int
	box        Rect
}

// Line is a run of glyphs sharing a baseline, with no large horizontal gap.
// Text is whitespace-collapsed and never blank.
type Line struct {
	Text  string
	Box   Rect
	spans []span
}

// Block is a group of vertically adjacent, horizontally overlapping lines,
// such as a paragraph, an address or a footer.
type Block struct {
	// Lines are indexes into Page.Lines.
	Lines []int
	Box   Rect
}

// Page is the text layout of one page.
type Page struct {
	// Number is 1-based.
	Number int
	Lines  []Line
	Blocks []Block

	// offsets[i] is the byte offset of Lines[i] within Text().
	offsets []int
}

// Layout groups glyphs into lines and blocks in reading order:
// top to bottom, then left to right.
func Layout(number int, glyphs []Glyph) Page {
	page := Page{Number: number}

	sorted := slices.Clone(glyphs)
	slices.SortStableFunc(sorted, func(a, b Glyph) int {
		return cmp.Compare(b.Y, a.Y)
	})

	for _, row := range groupRows(sorted) {
		slices.SortStableFunc(row, func(a, b Glyph) int {
			return cmp.Compare(a.X, b.X)
		})
		for _, run := range splitColumns(row) {
			if line, ok := buildLine(run); ok {
				page.Lines = append(page.Lines, line)
			}
		}
	}

	page.offsets = make([]int, len(page.Lines))
	off := 0
	for i, l := range page.Lines {
		page.offsets[i] = off
		off += len(l.Text) + 1
	}

	page.Blocks = groupBlocks(page.Lines)
	return page
}

// Text returns the page's lines joined by newlines.
func (p *Page) Text() string {
	texts := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

// BlockText returns the lines of block b joined by newlines.
func (p *Page) BlockText(b Block) string {
	texts := make([]string, 0, len(b.Lines))
	for _, i := range b.Lines {
		texts = append(texts, p.Lines[i].Text)
	}
	return strings.Join(texts, "\n")
}

// BlockAt returns the index of the block containing the byte offset off of Text(),
// or -1 when off falls between lines.
func (p *Page) BlockAt(off int) int {
	line := p.lineAt(off)
	if line < 0 {
		return -1
	}
	for bi, b := range p.Blocks {
		if slices.Contains(b.Lines, line) {
			return bi
		}
	}
	return -1
}

// Rects returns the boxes covering bytes [start, end) of Text(), one per line touched.
func (p *Page) Rects(start, end int) []Rect {
	var rects []Rect
	for i, l := range p.Lines {
		lineStart := p.offsets[i]
		lineEnd := lineStart + len(l.Text)
		if end <= lineStart || start >= lineEnd {
			continue
		}
		var box Rect
		found := false
		for _, s := range l.spans {
			if s.end <= start-lineStart || s.start >= end-lineStart {
				continue
			}
			if !found {
				box = s.box
				found = true
			} else {
				box = box.Union(s.box)
			}
		}
		if found {
			rects = append(rects, box)
		}
	}
	return rects
}

// TextWithin returns the text of the glyphs whose box centers lie inside r.
// Glyphs from different lines are separated by newlines.
func (p *Page) TextWithin(r Rect) string {
	var lines []string
	for _, l := range p.Lines {
		var sb strings.Builder
		for _, s := range l.spans {
			if r.Contains(s.box.Center()) {
				sb.WriteString(l.Text[s.start:s.end])
			}
		}
		if sb.Len() > 0 {
			lines = append(lines, sb.String())
		}
	}
	return strings.Join(lines, "\n")
}

func (p *Page) lineAt(off int) int {
	for i, l := range p.Lines {
		if off >= p.offsets[i] && off < p.offsets[i]+len(l.Text) {
			return i
		}
	}
	return -1
}

// groupRows splits glyphs sorted by descending baseline into rows.
func groupRows(sorted []Glyph) [][]Glyph {
	var rows [][]Glyph
	var current []Glyph
	var baseline float64
	for _, g := range sorted {
		tol := baselineTolerance * math.Max(g.Size, 1)
		if len(current) > 0 && math.Abs(baseline-g.Y) <= tol {
			current = append(current, g)
			continue
		}
		if len(current) > 0 {
			rows = append(rows, current)
		}
		current = []Glyph{g}
		baseline = g.Y
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	return rows
}

// splitColumns splits a row sorted by X wherever the gap is wide enough to be
// a column break rather than a word break.
func splitColumns(row []Glyph) [][]Glyph {
	var runs [][]Glyph
	start := 0
	for i := 1; i < len(row); i++ {
		prev := row[i-1]
		if row[i].X-(prev.X+glyphWidth(prev)) > columnGap*math.Max(prev.Size, 1) {
			runs = append(runs, row[start:i])
			start = i
		}
	}
	return append(runs, row[start:])
}

func buildLine(run []Glyph) (Line, bool) {
	var sb strings.Builder
	var line Line
	pendingSpace := false
	var prev *Glyph

	for i := range run {
		g := run[i]
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			pendingSpace = true
			continue
		}
		if prev != nil && g.X-(prev.X+glyphWidth(*prev)) > wordGap*math.Max(prev.Size, 1) {
			pendingSpace = true
		}
		if pendingSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		pendingSpace = false

		text := collapse(g.S)
		box := glyphBox(g)
		start := sb.Len()
		sb.WriteString(text)
		line.spans = append(line.spans, span{start: start, end: sb.Len(), box: box})
		if len(line.spans) == 1 {
			line.Box = box
		} else {
			line.Box = line.Box.Union(box)
		}
		prev = &run[i]
	}

	line.Text = sb.String()
	return line, line.Text != ""
}

// groupBlocks assigns each line to the most recent block whose last line sits
// directly above it and overlaps it horizontally.
func groupBlocks(lines []Line) []Block {
	var blocks []Block
	for i, l := range lines {
		height := l.Box.Y1 - l.Box.Y0
		joined := false
		for bi := len(blocks) - 1; bi >= 0; bi-- {
			last := lines[blocks[bi].Lines[len(blocks[bi].Lines)-1]]
			gap := last.Box.Y0 - l.Box.Y0
			if gap < 0 || gap > blockGap*height {
				continue
			}
			if !last.Box.overlapsX(l.Box) {
				continue
			}
			blocks[bi].Lines = append(blocks[bi].Lines, i)
			blocks[bi].Box = blocks[bi].Box.Union(l.Box)
			joined = true
			break
		}
		if !joined {
			blocks = append(blocks, Block{Lines: []int{i}, Box: l.Box})
		}
	}
	return blocks
}

func glyphWidth(g Glyph) float64 {
	if g.W > 0 {
		return g.W
	}
	return 0.5 * g.Size * float64(len([]rune(g.S)))
}

func glyphBox(g Glyph) Rect {
	return Rect{
		X0: g.X,
		Y0: g.Y - descent*g.Size,
		X1: g.X + glyphWidth(g),
		Y1: g.Y + ascent*g.Size,
	}
}

// collapse replaces internal whitespace runs in a multi-character glyph string.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
