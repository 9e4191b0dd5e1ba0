package infer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Store-level type names produced by Detect.
const (
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeText    = "TEXT"
)

type columnType int

const (
	typeUnknown columnType = iota
	typeInteger
	typeReal
	typeText
)

func (t columnType) String() string {
	switch t {
	case typeInteger:
		return TypeInteger
	case typeReal:
		return TypeReal
	default:
		return TypeText
	}
}

// Document is the helper output format. Columns hold the raw header cells.
type Document struct {
	Columns []string `json:"columns"`
	Types   []string `json:"types"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detect scans a whole CSV stream and proposes a type per header column.
//
// A column's type only widens as evidence appears: unknown → INTEGER →
// REAL → TEXT. Empty cells carry no evidence, and a column that never sees
// a non-empty cell is TEXT. Short rows are treated as having empty trailing
// cells; extra cells are ignored. An empty stream yields an empty Document.
func Detect(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Document{Columns: []string{}, Types: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	types := make([]columnType, len(header))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		for i := range types {
			if i >= len(record) {
				break
			}
			types[i] = widen(types[i], record[i])
		}
	}

	doc := &Document{Columns: header, Types: make([]string, len(types))}
	for i, t := range types {
		doc.Types[i] = t.String()
	}
	return doc, nil
}

func widen(current columnType, cell string) columnType {
	if cell == "" || current == typeText {
		return current
	}

	switch {
	case isInteger(cell):
		if current == typeUnknown {
			return typeInteger
		}
		return current
	case isReal(cell):
		return typeReal
	default:
		return typeText
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isInteger accepts an optional sign and at least one digit, with optional
// surrounding whitespace.
func isInteger(s string) bool {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return digits > 0 && i == len(s)
}

// isReal accepts an optional sign, digits with an optional fraction (at
// least one digit overall) and an optional exponent, with optional
// surrounding whitespace.
func isReal(s string) bool {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i == len(s)
}
