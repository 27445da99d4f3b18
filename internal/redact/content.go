package redact

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// operandKind is the kind of a content stream operand the stripper reads.
// Operands of any other kind are carried as raw bytes.
type operandKind int

const (
	operandOther operandKind = iota
	operandNumber
	operandName
	operandString
	operandArray
)

// operand is one operand of a content stream operator.
type operand struct {
	kind  operandKind
	raw   []byte
	num   float64
	name  string
	str   []byte
	items []operand
}

// instruction is an operator with its operands. Raw spans the operands and the
// operator exactly as they appeared, so untouched instructions are copied verbatim.
type instruction struct {
	op       string
	operands []operand
	raw      []byte
}

// parseInstructions splits a page content stream into instructions.
// Inline images are kept whole as a single "BI" instruction.
func parseInstructions(data []byte) ([]instruction, error) {
	l := &contentLexer{data: data}
	var out []instruction
	var operands []operand
	start := 0

	for {
		l.skip()
		if l.pos >= len(l.data) {
			break
		}
		if len(operands) == 0 {
			start = l.pos
		}

		if isOperandStart(l.data[l.pos]) {
			o, err := l.operand()
			if err != nil {
				return nil, err
			}
			operands = append(operands, o)
			continue
		}

		word := l.word()
		switch word {
		case "":
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrContentSyntax, l.data[l.pos], l.pos)
		case "true", "false", "null":
			operands = append(operands, operand{raw: l.data[l.pos-len(word) : l.pos]})
			continue
		case "BI":
			if err := l.inlineImage(); err != nil {
				return nil, err
			}
		}
		out = append(out, instruction{op: word, operands: operands, raw: l.data[start:l.pos]})
		operands = nil
	}

	if len(operands) > 0 {
		out = append(out, instruction{operands: operands, raw: l.data[start:]})
	}
	return out, nil
}

type contentLexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isOperandStart(c byte) bool {
	switch {
	case c == '/', c == '(', c == '<', c == '[':
		return true
	case c == '+', c == '-', c == '.':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	return false
}

func (l *contentLexer) peek(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

// skip moves past whitespace and comments.
func (l *contentLexer) skip() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// word reads regular characters up to the next delimiter or whitespace.
func (l *contentLexer) word() string {
	start := l.pos
	for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *contentLexer) operand() (operand, error) {
	start := l.pos
	var o operand
	var err error

	switch c := l.data[l.pos]; {
	case c == '/':
		l.pos++
		o = operand{kind: operandName, name: decodeName(l.word())}
	case c == '(':
		o.kind = operandString
		o.str, err = l.literal()
	case c == '<' && l.peek(1) == '<':
		err = l.dict()
	case c == '<':
		o.kind = operandString
		o.str, err = l.hexString()
	case c == '[':
		o.kind = operandArray
		o.items, err = l.array()
	default:
		w := l.word()
		f, perr := strconv.ParseFloat(w, 64)
		if perr != nil {
			return operand{}, fmt.Errorf("%w: bad number %q at offset %d", ErrContentSyntax, w, start)
		}
		o = operand{kind: operandNumber, num: f}
	}
	if err != nil {
		return operand{}, err
	}
	o.raw = l.data[start:l.pos]
	return o, nil
}

func (l *contentLexer) array() ([]operand, error) {
	l.pos++
	var items []operand
	for {
		l.skip()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("%w: unterminated array", ErrContentSyntax)
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return items, nil
		}
		if isOperandStart(l.data[l.pos]) {
			item, err := l.operand()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			continue
		}
		start := l.pos
		if l.word() == "" {
			return nil, fmt.Errorf("%w: unexpected %q in array", ErrContentSyntax, l.data[l.pos])
		}
		items = append(items, operand{raw: l.data[start:l.pos]})
	}
}

// dict skips a dictionary operand, such as the properties of BDC.
func (l *contentLexer) dict() error {
	l.pos += 2
	for {
		l.skip()
		if l.pos >= len(l.data) {
			return fmt.Errorf("%w: unterminated dictionary", ErrContentSyntax)
		}
		if l.data[l.pos] == '>' && l.peek(1) == '>' {
			l.pos += 2
			return nil
		}
		if isOperandStart(l.data[l.pos]) {
			if _, err := l.operand(); err != nil {
				return err
			}
			continue
		}
		if l.word() == "" {
			return fmt.Errorf("%w: unexpected %q in dictionary", ErrContentSyntax, l.data[l.pos])
		}
	}
}

func (l *contentLexer) literal() ([]byte, error) {
	l.pos++
	depth := 1
	var out []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				return nil, fmt.Errorf("%w: unterminated string", ErrContentSyntax)
			}
			out = l.escape(out)
		default:
			out = append(out, c)
		}
	}
	return nil, fmt.Errorf("%w: unterminated string", ErrContentSyntax)
}

// escape decodes the escape sequence after a backslash in a literal string.
func (l *contentLexer) escape(out []byte) []byte {
	e := l.data[l.pos]
	l.pos++
	switch e {
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'b':
		return append(out, '\b')
	case 'f':
		return append(out, '\f')
	case '\r':
		if l.pos < len(l.data) && l.data[l.pos] == '\n' {
			l.pos++
		}
		return out
	case '\n':
		return out
	}
	if e < '0' || e > '7' {
		return append(out, e)
	}
	v := int(e - '0')
	for range 2 {
		if l.pos >= len(l.data) || l.data[l.pos] < '0' || l.data[l.pos] > '7' {
			break
		}
		v = v*8 + int(l.data[l.pos]-'0')
		l.pos++
	}
	return append(out, byte(v))
}

func (l *contentLexer) hexString() ([]byte, error) {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if isWhite(c) {
			continue
		}
		if c != '>' {
			digits = append(digits, c)
			continue
		}
		if len(digits)%2 == 1 {
			digits = append(digits, '0')
		}
		out := make([]byte, len(digits)/2)
		if _, err := hex.Decode(out, digits); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContentSyntax, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unterminated hex string", ErrContentSyntax)
}

// inlineImage moves past the parameters and data of an inline image, ending after EI.
func (l *contentLexer) inlineImage() error {
	for {
		l.skip()
		if l.pos >= len(l.data) {
			return fmt.Errorf("%w: unterminated inline image", ErrContentSyntax)
		}
		if isOperandStart(l.data[l.pos]) {
			if _, err := l.operand(); err != nil {
				return err
			}
			continue
		}
		w := l.word()
		if w == "" {
			return fmt.Errorf("%w: unexpected %q in inline image", ErrContentSyntax, l.data[l.pos])
		}
		if w == "ID" {
			break
		}
	}

	// One whitespace byte separates ID from the image data.
	l.pos++
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' || !isWhite(l.data[i-1]) {
			continue
		}
		if i+2 == len(l.data) || isWhite(l.data[i+2]) || isDelim(l.data[i+2]) {
			l.pos = i + 2
			return nil
		}
	}
	return fmt.Errorf("%w: inline image without EI", ErrContentSyntax)
}

// decodeName resolves #xx escapes in a name.
func decodeName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '#' && i+2 < len(s) {
			var b [1]byte
			if _, err := hex.Decode(b[:], []byte(s[i+1:i+3])); err == nil {
				out = append(out, b[0])
				i += 2
				continue
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}
