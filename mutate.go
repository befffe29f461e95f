package expkeys

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when a value cannot be written to a keys file.
var ErrInvalidValue = errors.New("invalid value")

// --- Escaping ---

// quoteJSON returns s as a double-quoted string that is valid both as a JSON
// string and inside a keys file.
func quoteJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			escapeRune(&b, r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// escapeControl escapes raw control characters in an already quoted string.
func escapeControl(s string) string {
	if !needsDoubleQuotes(s) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		escapeRune(&b, r)
	}
	return b.String()
}

func escapeRune(b *strings.Builder, r rune) {
	switch r {
	case '\b':
		b.WriteString(`\b`)
	case '\t':
		b.WriteString(`\t`)
	case '\n':
		b.WriteString(`\n`)
	case '\f':
		b.WriteString(`\f`)
	case '\r':
		b.WriteString(`\r`)
	default:
		if isControlChar(r) {
			fmt.Fprintf(b, `\u%04X`, r)
			return
		}
		b.WriteRune(r)
	}
}

// --- Constructor functions ---

// NewText creates a text value.
func NewText(s string) Value {
	return Value{kind: KindText, text: s}
}

// NewNumber creates a number from an unsigned decimal literal such as "120"
// or "3.5".
func NewNumber(literal string) (Value, error) {
	if !isNumericLiteral(literal) {
		return Value{}, fmt.Errorf("%w: %q is not an unsigned decimal literal", ErrInvalidValue, literal)
	}
	return Value{kind: KindNumber, text: literal}, nil
}

// NewInteger creates a number from v.
func NewInteger(v uint64) Value {
	return Value{kind: KindNumber, text: strconv.FormatUint(v, 10)}
}

// NewFloat creates a number from v. Negative, infinite and NaN values have
// no keys-file number form.
func NewFloat(v float64) (Value, error) {
	if math.IsInf(v, 0) || math.IsNaN(v) || v < 0 {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, v)
	}
	return NewNumber(strconv.FormatFloat(v, 'f', -1, 64))
}

// NewList creates a list value holding copies of items.
func NewList(items ...Value) Value {
	return Value{kind: KindList, items: append([]Value{}, items...)}
}

// --- Mutation ---

// Set stores v under key. A new key is appended after existing ones.
func (k *Keys) Set(key string, v Value) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err := validateValue(v); err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	if k.values == nil {
		k.values = make(map[string]Value)
	}
	k.put(key, v)
	return nil
}

func validateValue(v Value) error {
	switch v.kind {
	case KindText:
		if strings.ContainsRune(v.text, placeholder) {
			return fmt.Errorf("%w: text contains reserved character %U", ErrInvalidValue, placeholder)
		}
	case KindNumber:
		if !isNumericLiteral(v.text) {
			return fmt.Errorf("%w: bad number literal %q", ErrInvalidValue, v.text)
		}
	case KindList:
		for i, item := range v.items {
			if err := validateValue(item); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidValue, v.kind)
	}
	return nil
}

// Delete removes key and reports whether it was present.
func (k *Keys) Delete(key string) bool {
	if _, ok := k.values[key]; !ok {
		return false
	}
	delete(k.values, key)
	for i, name := range k.names {
		if name == key {
			k.names = append(k.names[:i:i], k.names[i+1:]...)
			break
		}
	}
	return true
}

// Clone returns an independent copy of k.
func (k *Keys) Clone() *Keys {
	c := &Keys{
		names:  append([]string(nil), k.names...),
		values: make(map[string]Value, len(k.values)),
	}
	for name, v := range k.values {
		c.values[name] = v.clone()
	}
	return c
}

func (v Value) clone() Value {
	if v.kind != KindList {
		return v
	}
	items := make([]Value, len(v.items))
	for i, item := range v.items {
		items[i] = item.clone()
	}
	return Value{kind: KindList, items: items}
}

// UnmarshalJSON reads a flat JSON object, keeping member order. Strings
// become text, unsigned decimal numbers become numbers, other numbers stay
// text, arrays become lists.
func (k *Keys) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	decoded, err := decodeObject(dec, func(s string) string { return s })
	if err != nil {
		return err
	}
	for _, name := range decoded.names {
		if err := k.Set(name, decoded.values[name]); err != nil {
			return err
		}
	}
	return nil
}
