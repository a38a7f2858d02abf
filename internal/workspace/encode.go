package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Encode writes w as one document in the given format.
func Encode(out io.Writer, w *Workspace, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(out)
		return enc.Encode(w)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(w); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Decode reads a JSON workspace document.
func Decode(r io.Reader) (*Workspace, error) {
	w := New()
	if err := json.NewDecoder(r).Decode(w); err != nil {
		return nil, fmt.Errorf("decode workspace: %w", err)
	}
	return w, nil
}

func marshalOrdered[V any](keys []string, get func(string) V) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(get(k))
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unmarshalOrdered(data []byte, each func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := each(key, raw); err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the crate as an object of files in insertion order.
func (c *Crate) MarshalJSON() ([]byte, error) {
	return marshalOrdered(c.order, func(k string) *File { return c.files[k] })
}

// UnmarshalJSON decodes an object of files, keeping key order.
func (c *Crate) UnmarshalJSON(data []byte) error {
	*c = *NewCrate()
	return unmarshalOrdered(data, func(key string, raw json.RawMessage) error {
		f := NewFile()
		if err := json.Unmarshal(raw, f); err != nil {
			return err
		}
		c.fileOrNew(key).Merge(f)
		return nil
	})
}

// MarshalJSON encodes the workspace as an object of crates in insertion order.
func (w *Workspace) MarshalJSON() ([]byte, error) {
	return marshalOrdered(w.order, func(k string) *Crate { return w.crates[k] })
}

// UnmarshalJSON decodes an object of crates, keeping key order.
func (w *Workspace) UnmarshalJSON(data []byte) error {
	*w = *New()
	return unmarshalOrdered(data, func(key string, raw json.RawMessage) error {
		c := NewCrate()
		if err := json.Unmarshal(raw, c); err != nil {
			return err
		}
		w.crateOrNew(key).Merge(c)
		return nil
	})
}

func orderedNode[V any](keys []string, get func(string) V) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range keys {
		val := &yaml.Node{}
		if err := val.Encode(get(k)); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			val)
	}
	return node, nil
}

// MarshalYAML encodes the crate as an ordered mapping.
func (c *Crate) MarshalYAML() (any, error) {
	return orderedNode(c.order, func(k string) *File { return c.files[k] })
}

// MarshalYAML encodes the workspace as an ordered mapping.
func (w *Workspace) MarshalYAML() (any, error) {
	return orderedNode(w.order, func(k string) *Crate { return w.crates[k] })
}
