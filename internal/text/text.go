// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package text implements the "(type,value)" literal form of a variant.
//
// Both fields follow the same quoting rule: a field is double-quoted when it is
// empty or contains any of `"`, `\`, `(`, `)`, `,` or whitespace, and inside
// quotes `"` and `\` are doubled.
//
// Parsing follows record literal rules. An unquoted empty field is null, `""`
// inside quotes is a literal quote, and a backslash takes the next character
// literally whether or not it is quoted.
package text

import (
	"strings"

	"go.e43.eu/variant/internal/errors"
)

// NeedsQuote reports whether s must be quoted
func NeedsQuote(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\', '(', ')', ',':
			return true
		default:
			if isSpace(c) {
				return true
			}
		}
	}
	return false
}

// isSpace matches the C locale's isspace
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// AppendQuoted appends s to b, quoting it if required
func AppendQuoted(b *strings.Builder, s string) {
	if !NeedsQuote(s) {
		b.WriteString(s)
		return
	}

	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte(c)
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
}

// Quote returns s, quoted if required
func Quote(s string) string {
	var b strings.Builder
	AppendQuoted(&b, s)
	return b.String()
}

// Field is one parsed field of a literal
type Field struct {
	Text string
	Null bool
}

// Prefix returns the output prefix "(type," for a type name
func Prefix(typeName string) string {
	var b strings.Builder
	b.Grow(len(typeName) + 2)
	b.WriteByte('(')
	AppendQuoted(&b, typeName)
	b.WriteByte(',')
	return b.String()
}

// Format renders a literal. prefix is the result of Prefix; value is ignored
// when null is set.
func Format(prefix, value string, null bool) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(value) + 3)
	b.WriteString(prefix)
	if !null {
		AppendQuoted(&b, value)
	}
	b.WriteByte(')')
	return b.String()
}

// Split parses a literal into its type and value fields
func Split(s string) (typ, value Field, err error) {
	p := parser{s: s}

	p.skipSpace()
	if !p.consume('(') {
		return Field{}, Field{}, p.fail("missing left parenthesis")
	}

	if typ, err = p.field(); err != nil {
		return Field{}, Field{}, err
	}
	if !p.consume(',') {
		return Field{}, Field{}, p.fail("too few columns")
	}

	if value, err = p.field(); err != nil {
		return Field{}, Field{}, err
	}
	if p.peek() == ',' {
		return Field{}, Field{}, p.fail("too many columns")
	}
	if !p.consume(')') {
		return Field{}, Field{}, p.fail("missing right parenthesis")
	}

	p.skipSpace()
	if !p.eof() {
		return Field{}, Field{}, p.fail("junk after right parenthesis")
	}

	return typ, value, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.s)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) consume(c byte) bool {
	if p.peek() == c && !p.eof() {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.s[p.pos]) {
		p.pos++
	}
}

func (p *parser) fail(detail string) error {
	return errors.WithOp(errors.ErrMalformedLiteral, "text", detail)
}

// field reads one field, stopping before an unquoted ',' or ')'
func (p *parser) field() (Field, error) {
	if c := p.peek(); c == ',' || c == ')' {
		return Field{Null: true}, nil
	}

	var (
		b       strings.Builder
		inQuote bool
	)

	for {
		if p.eof() {
			return Field{}, p.fail("unexpected end of input")
		}

		c := p.s[p.pos]
		switch {
		case c == '\\':
			if p.pos+1 >= len(p.s) {
				return Field{}, p.fail("unexpected end of input")
			}
			b.WriteByte(p.s[p.pos+1])
			p.pos += 2

		case c == '"':
			if !inQuote {
				inQuote = true
			} else if p.pos+1 < len(p.s) && p.s[p.pos+1] == '"' {
				// doubled quote inside quotes
				b.WriteByte('"')
				p.pos++
			} else {
				inQuote = false
			}
			p.pos++

		case !inQuote && (c == ',' || c == ')'):
			return Field{Text: b.String()}, nil

		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}
