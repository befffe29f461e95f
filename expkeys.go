// Package expkeys reads experiment-key files: per-session metadata written as
// MATLAB struct-field assignments.
//
//	ExpKeys.subject = 'M541';
//	ExpKeys.sex = 'Male'; % inline comment
//	ExpKeys.block1start = +120;
//
// A document is reduced to a JSON object literal by a fixed sequence of text
// rewrites and then decoded into a flat, ordered mapping of typed values.
package expkeys

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Sentinel errors.
var (
	ErrNilInput          = errors.New("nil input")
	ErrMalformedDocument = errors.New("malformed experiment keys document")
	ErrKeyNotFound       = errors.New("key not found")
	ErrTypeMismatch      = errors.New("value type mismatch")
	ErrInvalidKey        = errors.New("invalid key")
)

// StatementPrefix starts every assignment in a keys file.
const StatementPrefix = "ExpKeys."

// ParseError reports a document that could not be reduced to a flat object.
// It always wraps ErrMalformedDocument.
type ParseError struct {
	File    string // empty for in-memory input
	Stage   string
	Message string
	Line    int
	Column  int
	Source  string
}

func (e *ParseError) Error() string {
	var buf strings.Builder
	if e.File != "" {
		buf.WriteString(e.File)
		buf.WriteString(": ")
	}
	if e.Column > 0 {
		fmt.Fprintf(&buf, "line %d, column %d: %s: %s", e.Line, e.Column, e.Stage, e.Message)
	} else {
		fmt.Fprintf(&buf, "line %d: %s: %s", e.Line, e.Stage, e.Message)
	}
	lines := strings.Split(strings.ReplaceAll(e.Source, "\r\n", "\n"), "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return buf.String()
	}
	lineContent := lines[e.Line-1]
	fmt.Fprintf(&buf, "\n  %d | %s", e.Line, lineContent)
	if e.Column > 0 {
		buf.WriteString("\n    | ")
		for i := 1; i < e.Column; i++ {
			if i-1 < len(lineContent) && lineContent[i-1] == '\t' {
				buf.WriteByte('\t')
			} else {
				buf.WriteByte(' ')
			}
		}
		buf.WriteString("^")
	}
	return buf.String()
}

func (e *ParseError) Unwrap() error { return ErrMalformedDocument }

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// TypeMismatchError is returned by typed accessors when a value has a
// different kind than requested. It wraps ErrTypeMismatch.
type TypeMismatchError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("expected %s value, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("key %q: expected %s value, got %s", e.Key, e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// Value is a decoded right-hand side: text, a number kept as its literal,
// or a list of values.
type Value struct {
	kind  Kind
	text  string
	items []Value
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Text returns the string content of a text value, or the literal of a number.
// It is empty for lists.
func (v Value) Text() string { return v.text }

// Items returns a copy of a list's elements.
func (v Value) Items() []Value { return append([]Value(nil), v.items...) }

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.text != o.text || len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if !v.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}

// String renders the value in keys-file notation.
func (v Value) String() string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

// Keys is the decoded mapping of one keys file. Names keep the position of
// their first appearance; a repeated key takes the later value.
type Keys struct {
	names  []string
	values map[string]Value
}

// NewKeys returns an empty mapping.
func NewKeys() *Keys {
	return &Keys{values: make(map[string]Value)}
}

// Len returns the number of keys.
func (k *Keys) Len() int { return len(k.names) }

// Names returns the keys in source order.
func (k *Keys) Names() []string { return append([]string(nil), k.names...) }

// Get returns the value stored under key.
func (k *Keys) Get(key string) (Value, bool) {
	v, ok := k.values[key]
	return v, ok
}

// Has reports whether key is present.
func (k *Keys) Has(key string) bool {
	_, ok := k.values[key]
	return ok
}

// Equal reports whether both mappings hold the same keys and values.
// Order is not compared.
func (k *Keys) Equal(o *Keys) bool {
	if k == nil || o == nil {
		return k == o
	}
	if len(k.values) != len(o.values) {
		return false
	}
	for name, v := range k.values {
		ov, ok := o.values[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (k *Keys) put(key string, v Value) {
	if _, ok := k.values[key]; !ok {
		k.names = append(k.names, key)
	}
	k.values[key] = v
}

// String renders the mapping back to keys-file source.
func (k *Keys) String() string {
	var b strings.Builder
	for _, name := range k.names {
		b.WriteString(StatementPrefix)
		b.WriteString(name)
		b.WriteString(" = ")
		writeValue(&b, k.values[name])
		b.WriteString(";\n")
	}
	return b.String()
}

// Encode writes the mapping as keys-file source.
func (k *Keys) Encode(w io.Writer) error {
	_, err := io.WriteString(w, k.String())
	return err
}

// Format returns the keys-file source for k.
func Format(k *Keys) []byte {
	return []byte(k.String())
}

func writeValue(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNumber:
		b.WriteString(v.text)
	case KindList:
		b.WriteByte('{')
		for i, item := range v.items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, item)
		}
		b.WriteByte('}')
	default:
		if needsDoubleQuotes(v.text) {
			b.WriteString(quoteJSON(v.text))
			return
		}
		b.WriteByte('\'')
		b.WriteString(strings.ReplaceAll(v.text, "'", "''"))
		b.WriteByte('\'')
	}
}

// Parse reads a keys document from bytes.
func Parse(b []byte) (*Keys, error) {
	if b == nil {
		return nil, ErrNilInput
	}
	return parseSource("", string(b))
}

// ParseString reads a keys document from a string.
func ParseString(s string) (*Keys, error) {
	return parseSource("", s)
}

// ParseReader reads a keys document from r. name identifies the source in
// errors.
func ParseReader(name string, r io.Reader) (*Keys, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return parseSource(name, string(data))
}

// ParseFile reads and parses the keys file at path.
func ParseFile(path string) (*Keys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSource(path, string(data))
}

func parseSource(name, src string) (*Keys, error) {
	k, err := newParser(src).parse()
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.File = name
			pe.Source = src
		}
		return nil, err
	}
	return k, nil
}
