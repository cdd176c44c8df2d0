// Package richtext flattens the recursive rich-text DOM that the lyrics API
// embeds in song and artist descriptions into a flat, renderer-friendly
// sequence of text blocks and images.
package richtext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type nodeKind uint8

const (
	kindEmpty nodeKind = iota
	kindText
	kindElement
)

// Node is a single node of the upstream DOM. A node is either a bare text
// leaf or a tagged element carrying attributes and ordered children. The
// zero value is an empty node that flattens to nothing.
type Node struct {
	kind     nodeKind
	text     string
	tag      string
	attrs    map[string]any
	children []Node
}

// Text returns a text leaf.
func Text(s string) Node {
	return Node{kind: kindText, text: s}
}

// Elem returns an element node with the given tag, attributes, and children.
// Attrs may be nil.
func Elem(tag string, attrs map[string]any, children ...Node) Node {
	return Node{kind: kindElement, tag: tag, attrs: attrs, children: children}
}

// UnmarshalJSON decodes the upstream wire shape: a JSON string becomes a text
// leaf, an object with "tag"/"attributes"/"children" becomes an element, and
// null becomes the empty node.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = Node{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode text node: %w", err)
		}
		*n = Node{kind: kindText, text: s}
		return nil
	}
	var raw struct {
		Tag        string         `json:"tag"`
		Attributes map[string]any `json:"attributes"`
		Children   []Node         `json:"children"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decode element node: %w", err)
	}
	*n = Node{kind: kindElement, tag: raw.Tag, attrs: raw.Attributes, children: raw.Children}
	return nil
}

func (n Node) stringAttr(key string) string {
	switch v := n.attrs[key].(type) {
	case string:
		return v
	default:
		return ""
	}
}

// intAttr tolerates the upstream's habit of sending numeric attributes as
// either JSON numbers or digit strings.
func (n Node) intAttr(key string) int {
	switch v := n.attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}
