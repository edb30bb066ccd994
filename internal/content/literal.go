// Package content decodes Boosty rich-text blocks into plain text and media links.
package content

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrParse is returned for content that is not a well-formed text literal.
var ErrParse = errors.New("parse content")

const (
	maxLiteralSize  = 1 << 20
	maxLiteralDepth = 8
)

// ParseTextLiteral decodes a bracketed list literal such as
// `["Hello", "unstyled", []]` or `['Hello']` and returns its first element.
//
// Only strings, numbers, booleans, null and nested lists are accepted. The
// first element must be a string.
func ParseTextLiteral(s string) (string, error) {
	if len(s) > maxLiteralSize {
		return "", fmt.Errorf("%w: literal exceeds %d bytes", ErrParse, maxLiteralSize)
	}

	p := &literalParser{src: s}
	p.skipSpace()
	if !p.consume('[') {
		return "", p.errorf("expected '['")
	}

	p.skipSpace()
	if p.peek() == '\'' || p.peek() == '"' {
		first, err := p.parseString()
		if err != nil {
			return "", err
		}
		if err := p.parseListTail(1); err != nil {
			return "", err
		}
		p.skipSpace()
		if !p.done() {
			return "", p.errorf("unexpected trailing data")
		}
		return first, nil
	}
	if p.peek() == ']' {
		return "", p.errorf("empty list")
	}
	return "", p.errorf("first element is not a string")
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: offset %d: %s", ErrParse, p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) done() bool {
	return p.pos >= len(p.src)
}

func (p *literalParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) consume(c byte) bool {
	if p.peek() == c && !p.done() {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) skipSpace() {
	for !p.done() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// parseListTail consumes the remaining elements after the first one,
// including the closing bracket.
func (p *literalParser) parseListTail(depth int) error {
	for {
		p.skipSpace()
		if p.consume(']') {
			return nil
		}
		if !p.consume(',') {
			return p.errorf("expected ',' or ']'")
		}
		p.skipSpace()
		// Trailing comma.
		if p.consume(']') {
			return nil
		}
		if err := p.parseValue(depth); err != nil {
			return err
		}
	}
}

func (p *literalParser) parseValue(depth int) error {
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		_, err := p.parseString()
		return err
	case c == '[':
		if depth >= maxLiteralDepth {
			return p.errorf("nesting deeper than %d", maxLiteralDepth)
		}
		p.pos++
		p.skipSpace()
		if p.consume(']') {
			return nil
		}
		if err := p.parseValue(depth + 1); err != nil {
			return err
		}
		return p.parseListTail(depth + 1)
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseKeyword()
	}
}

func (p *literalParser) parseNumber() error {
	start := p.pos
	for !p.done() && strings.IndexByte("+-0123456789.eE", p.src[p.pos]) >= 0 {
		p.pos++
	}
	if _, err := strconv.ParseFloat(p.src[start:p.pos], 64); err != nil {
		p.pos = start
		return p.errorf("invalid number")
	}
	return nil
}

var keywords = []string{"True", "False", "None", "true", "false", "null"}

func (p *literalParser) parseKeyword() error {
	for _, kw := range keywords {
		if strings.HasPrefix(p.src[p.pos:], kw) {
			p.pos += len(kw)
			return nil
		}
	}
	return p.errorf("unexpected token")
}

func (p *literalParser) parseString() (string, error) {
	quote := p.src[p.pos]
	p.pos++

	var b strings.Builder
	for {
		if p.done() {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if err := p.parseEscape(&b); err != nil {
				return "", err
			}
		case c == '\n':
			return "", p.errorf("newline in string")
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *literalParser) parseEscape(b *strings.Builder) error {
	if p.done() {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\\', '\'', '"', '/':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '\n':
		// Line continuation.
	case 'x':
		r, err := p.parseHex(2)
		if err != nil {
			return err
		}
		b.WriteRune(r)
	case 'U':
		r, err := p.parseHex(8)
		if err != nil {
			return err
		}
		if !utf8.ValidRune(r) {
			return p.errorf("invalid code point %U", r)
		}
		b.WriteRune(r)
	case 'u':
		r, err := p.parseHex(4)
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) && strings.HasPrefix(p.src[p.pos:], `\u`) {
			save := p.pos
			p.pos += 2
			low, err := p.parseHex(4)
			if err != nil {
				return err
			}
			if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
				b.WriteRune(pair)
				return nil
			}
			p.pos = save
		}
		b.WriteRune(r)
	default:
		return p.errorf("unknown escape '\\%c'", c)
	}
	return nil
}

func (p *literalParser) parseHex(n int) (rune, error) {
	if p.pos+n > len(p.src) {
		return 0, p.errorf("truncated escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil {
		return 0, p.errorf("invalid hex escape")
	}
	p.pos += n
	return rune(v), nil
}
