package expkeys

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parser runs the rewrite stages over one document and decodes the result.
type parser struct {
	source string
}

func newParser(source string) *parser {
	return &parser{source: source}
}

func (p *parser) parse() (*Keys, error) {
	if line, col, msg := validateUTF8(p.source); msg != "" {
		return nil, &ParseError{Stage: stageEncoding, Message: msg, Line: line, Column: col}
	}

	lines, err := stripComments(splitLines(p.source))
	if err != nil {
		return nil, err
	}
	lines = collapseBlankLines(lines)
	lines = clipTerminators(lines)
	if lines, err = rewriteAssignments(lines); err != nil {
		return nil, err
	}
	lines = stripUnaryPlus(lines)
	lines = normalizeColonSpacing(lines)
	if lines, err = quoteBareWords(lines); err != nil {
		return nil, err
	}
	if lines, err = neutralizeApostrophes(lines); err != nil {
		return nil, err
	}
	return decode(dropTrailingCommas(assemble(lines)))
}

// decode reads the assembled object. Failures are reported against the
// source line of the statement being decoded.
func decode(a *assembly) (*Keys, error) {
	dec := json.NewDecoder(strings.NewReader(a.text))
	dec.UseNumber()

	keys, err := decodeObject(dec, restoreApostrophes)
	if err == nil {
		if _, err = dec.Token(); err == io.EOF {
			return keys, nil
		}
		if err == nil {
			err = errors.New("unexpected content after object")
		}
	}

	offset := dec.InputOffset()
	var se *json.SyntaxError
	if errors.As(err, &se) {
		offset = se.Offset
	}
	return nil, &ParseError{Stage: stageDecode, Message: err.Error(), Line: a.lineAt(offset)}
}

// decodeObject reads one flat JSON object from dec in source order. unquote
// is applied to every decoded string.
func decodeObject(dec *json.Decoder, unquote func(string) string) (*Keys, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	keys := NewKeys()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		v, err := decodeValue(dec, unquote)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		keys.put(key, v)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return keys, nil
}

func decodeValue(dec *json.Decoder, unquote func(string) string) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case string:
		return Value{kind: KindText, text: unquote(t)}, nil
	case json.Number:
		if isNumericLiteral(t.String()) {
			return Value{kind: KindNumber, text: t.String()}, nil
		}
		return Value{kind: KindText, text: t.String()}, nil
	case json.Delim:
		if t != '[' {
			return Value{}, fmt.Errorf("nested structures are not supported")
		}
		items := []Value{}
		for dec.More() {
			item, err := decodeValue(dec, unquote)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return Value{}, err
		}
		return Value{kind: KindList, items: items}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value %v", tok)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
