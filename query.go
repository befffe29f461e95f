package expkeys

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// --- Value extraction methods ---

// AsText returns the content of a text value.
func (v Value) AsText() (string, error) {
	if v.kind != KindText {
		return "", &TypeMismatchError{Want: KindText, Got: v.kind}
	}
	return v.text, nil
}

// Float parses a number value as a float64.
func (v Value) Float() (float64, error) {
	if v.kind != KindNumber {
		return 0, &TypeMismatchError{Want: KindNumber, Got: v.kind}
	}
	return strconv.ParseFloat(v.text, 64)
}

// Int parses a number value as an int64.
// Returns an error if the number has a fractional part.
func (v Value) Int() (int64, error) {
	if v.kind != KindNumber {
		return 0, &TypeMismatchError{Want: KindNumber, Got: v.kind}
	}
	return strconv.ParseInt(v.text, 10, 64)
}

// Strings returns a text value as a one-element slice, or the elements of a
// list whose items are all text.
func (v Value) Strings() ([]string, error) {
	switch v.kind {
	case KindText:
		return []string{v.text}, nil
	case KindList:
		out := make([]string, 0, len(v.items))
		for _, item := range v.items {
			if item.kind != KindText {
				return nil, &TypeMismatchError{Want: KindText, Got: item.kind}
			}
			out = append(out, item.text)
		}
		return out, nil
	default:
		return nil, &TypeMismatchError{Want: KindList, Got: v.kind}
	}
}

// Interface converts v to string, float64 or []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		f, err := strconv.ParseFloat(v.text, 64)
		if err != nil {
			return v.text
		}
		return f
	case KindList:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	default:
		return v.text
	}
}

// MarshalJSON writes text as a JSON string, numbers as their literal and
// lists as arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeJSONValue(&buf, v)
	return buf.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindNumber:
		buf.WriteString(v.text)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONValue(buf, item)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString(quoteJSON(v.text))
	}
}

// --- Keys query methods ---

// Lookup returns the value for key, or an error wrapping ErrKeyNotFound.
func (k *Keys) Lookup(key string) (Value, error) {
	v, ok := k.values[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

// Text returns the text stored under key. Numbers and lists are not
// converted.
func (k *Keys) Text(key string) (string, error) {
	v, err := k.Lookup(key)
	if err != nil {
		return "", err
	}
	s, err := v.AsText()
	return s, withKey(err, key)
}

// Float returns the number stored under key.
func (k *Keys) Float(key string) (float64, error) {
	v, err := k.Lookup(key)
	if err != nil {
		return 0, err
	}
	f, err := v.Float()
	return f, withKey(err, key)
}

// Int returns the integer stored under key.
func (k *Keys) Int(key string) (int64, error) {
	v, err := k.Lookup(key)
	if err != nil {
		return 0, err
	}
	n, err := v.Int()
	return n, withKey(err, key)
}

// Strings returns the text or list of text stored under key.
func (k *Keys) Strings(key string) ([]string, error) {
	v, err := k.Lookup(key)
	if err != nil {
		return nil, err
	}
	s, err := v.Strings()
	return s, withKey(err, key)
}

func withKey(err error, key string) error {
	if tm, ok := err.(*TypeMismatchError); ok {
		return &TypeMismatchError{Key: key, Want: tm.Want, Got: tm.Got}
	}
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return nil
}

// Map converts the mapping to plain Go values.
func (k *Keys) Map() map[string]any {
	out := make(map[string]any, len(k.values))
	for name, v := range k.values {
		out[name] = v.Interface()
	}
	return out
}

// MarshalJSON writes a JSON object with members in source order.
func (k *Keys) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range k.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		writeJSONValue(&buf, k.values[name])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
