// Package frontmatter splits a YAML frontmatter block from a note and exposes
// it as an ordered, mutable mapping.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrDecode is returned when a frontmatter block is present but cannot be
// decoded into a mapping.
var ErrDecode = errors.New("frontmatter: decode failed")

// Frontmatter is a YAML mapping that keeps its keys in source order.
type Frontmatter struct {
	node *yaml.Node
}

// New returns an empty mapping.
func New() *Frontmatter {
	return &Frontmatter{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// Split separates the leading frontmatter block from the body. A note without a
// block yields a nil Frontmatter and the raw text unchanged. The body starts
// after the closing delimiter with leading blank lines removed.
func Split(raw []byte) (*Frontmatter, string, error) {
	text := strings.TrimPrefix(string(raw), "\ufeff")
	first, rest, found := strings.Cut(text, "\n")
	if strings.TrimRight(first, " \t\r") != delimiter {
		return nil, string(raw), nil
	}
	if !found {
		return nil, "", fmt.Errorf("%w: unterminated block", ErrDecode)
	}

	offset := 0
	for {
		line, after, more := strings.Cut(rest[offset:], "\n")
		trimmed := strings.TrimRight(line, " \t\r")
		if trimmed == delimiter || trimmed == "..." {
			fm, err := parse([]byte(rest[:offset]))
			if err != nil {
				return nil, "", err
			}
			return fm, trimBlankLines(after), nil
		}
		if !more {
			return nil, "", fmt.Errorf("%w: unterminated block", ErrDecode)
		}
		offset += len(line) + 1
	}
}

func parse(src []byte) (*Frontmatter, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return New(), nil
	}
	root := doc.Content[0]
	switch {
	case root.Kind == yaml.MappingNode:
		return &Frontmatter{node: root}, nil
	case root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		return New(), nil
	}
	return nil, fmt.Errorf("%w: block is not a mapping", ErrDecode)
}

func trimBlankLines(s string) string {
	for s != "" {
		line, after, more := strings.Cut(s, "\n")
		if strings.TrimSpace(line) != "" {
			return s
		}
		if !more {
			return ""
		}
		s = after
	}
	return s
}

func (f *Frontmatter) find(key string) int {
	for i := 0; i+1 < len(f.node.Content); i += 2 {
		if f.node.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func (f *Frontmatter) value(key string) *yaml.Node {
	if f == nil {
		return nil
	}
	i := f.find(key)
	if i < 0 {
		return nil
	}
	v := f.node.Content[i+1]
	if v.Kind == yaml.AliasNode && v.Alias != nil {
		return v.Alias
	}
	return v
}

// Len returns the number of keys.
func (f *Frontmatter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.node.Content) / 2
}

// Keys returns the keys in order.
func (f *Frontmatter) Keys() []string {
	keys := make([]string, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		keys = append(keys, f.node.Content[2*i].Value)
	}
	return keys
}

// Has reports whether key is present.
func (f *Frontmatter) Has(key string) bool {
	return f.value(key) != nil
}

// Get decodes the value stored under key.
func (f *Frontmatter) Get(key string) (any, bool) {
	v := f.value(key)
	if v == nil {
		return nil, false
	}
	var out any
	if err := v.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

// Bool reports whether key holds the YAML boolean true. Strings such as
// "true" or "yes" do not count.
func (f *Frontmatter) Bool(key string) bool {
	v := f.value(key)
	if v == nil || v.Kind != yaml.ScalarNode || v.ShortTag() != "!!bool" {
		return false
	}
	var b bool
	if err := v.Decode(&b); err != nil {
		return false
	}
	return b
}

// Strings returns the scalar items of a sequence value. ok is false when the
// key is missing or does not hold a sequence.
func (f *Frontmatter) Strings(key string) (items []string, ok bool) {
	v := f.value(key)
	if v == nil || v.Kind != yaml.SequenceNode {
		return nil, false
	}
	for _, item := range v.Content {
		if item.Kind == yaml.AliasNode && item.Alias != nil {
			item = item.Alias
		}
		if item.Kind == yaml.ScalarNode {
			items = append(items, item.Value)
		}
	}
	return items, true
}

// Set stores value under key, replacing an existing entry in place or
// appending a new one.
func (f *Frontmatter) Set(key string, value any) error {
	var v yaml.Node
	if err := v.Encode(value); err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if i := f.find(key); i >= 0 {
		f.node.Content[i+1] = &v
		return nil
	}
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	f.node.Content = append(f.node.Content, k, &v)
	return nil
}

// Delete removes key and reports whether it was present.
func (f *Frontmatter) Delete(key string) bool {
	i := f.find(key)
	if i < 0 {
		return false
	}
	f.node.Content = append(f.node.Content[:i], f.node.Content[i+2:]...)
	return true
}

// Decode unmarshals the mapping into v.
func (f *Frontmatter) Decode(v any) error {
	if f == nil {
		return nil
	}
	return f.node.Decode(v)
}

// Clone returns a deep copy. Nil stays nil.
func (f *Frontmatter) Clone() *Frontmatter {
	if f == nil {
		return nil
	}
	return &Frontmatter{node: cloneNode(f.node, map[*yaml.Node]*yaml.Node{})}
}

func cloneNode(n *yaml.Node, seen map[*yaml.Node]*yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if c, ok := seen[n]; ok {
		return c
	}
	c := *n
	seen[n] = &c
	c.Alias = cloneNode(n.Alias, seen)
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child, seen)
		}
	}
	return &c
}

// Render encodes the mapping as YAML with two-space indentation. An empty
// mapping renders as nothing.
func (f *Frontmatter) Render() ([]byte, error) {
	if f.Len() == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f.node); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	return buf.Bytes(), nil
}
