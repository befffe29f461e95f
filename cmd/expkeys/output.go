package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maurice/expkeys"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatYAML:
		return nil
	}
	return &ExitError{Code: 2, Message: fmt.Sprintf("invalid format %q: must be 'json' or 'yaml'", format)}
}

// writeKeys writes keys in source order as indented JSON or YAML.
func writeKeys(w io.Writer, keys *expkeys.Keys, format string) error {
	if format == formatYAML {
		return encodeYAML(w, keysNode(keys))
	}
	data, err := keys.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}

// writeValue writes any JSON- and YAML-taggable value.
func writeValue(w io.Writer, v any, format string) error {
	if format == formatYAML {
		var node yaml.Node
		if err := node.Encode(v); err != nil {
			return err
		}
		return encodeYAML(w, &node)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, node *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

// keysNode builds a YAML mapping that keeps the keys' source order.
func keysNode(keys *expkeys.Keys) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range keys.Names() {
		v, _ := keys.Get(name)
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			valueNode(v),
		)
	}
	return m
}

func valueNode(v expkeys.Value) *yaml.Node {
	switch v.Kind() {
	case expkeys.KindNumber:
		tag := "!!int"
		if strings.Contains(v.Text(), ".") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.Text()}
	case expkeys.KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items() {
			seq.Content = append(seq.Content, valueNode(item))
		}
		return seq
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Text()}
	}
}
