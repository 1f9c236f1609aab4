// Package extract walks a parsed Tableau XML tree and produces typed
// records, one extractor per element kind. Extractors tolerate missing
// optional attributes, attribute-form vs. child-element-form variants, and
// unknown elements; a malformed element yields a diagnostic and is skipped,
// never an error. Only input that is not well-formed XML at all fails.
package extract

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Node is a generic XML element. The whole document is decoded once into
// this shape and extractors navigate it read-only.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []*Node    `xml:",any"`
	Text     string     `xml:",chardata"`
}

// ParseTree decodes a document into its root node. A decode error here is
// the fatal "not well-formed XML" case.
func ParseTree(r io.Reader) (*Node, error) {
	var root Node
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("not well-formed XML: %w", err)
	}
	return &root, nil
}

// Name returns the element's local name.
func (n *Node) Name() string {
	return n.XMLName.Local
}

// Attr returns the named attribute or "".
func (n *Node) Attr(name string) string {
	v, _ := n.AttrOK(name)
	return v
}

// AttrOK returns the named attribute and whether it was present.
func (n *Node) AttrOK(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given local name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first descendant with the given local name, depth-first
// in document order, or nil.
func (n *Node) Find(name string) *Node {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant with the given local name in document
// order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
		out = append(out, c.FindAll(name)...)
	}
	return out
}

// attrOrChild reads a value that appears either as an attribute or as a
// same-named child element across format versions. The child form may carry
// the value as element text or as its own value/formula attribute.
func (n *Node) attrOrChild(name string) string {
	if v, ok := n.AttrOK(name); ok {
		return v
	}
	c := n.Child(name)
	if c == nil {
		return ""
	}
	if v, ok := c.AttrOK("value"); ok {
		return v
	}
	return strings.TrimSpace(c.Text)
}

// stripBrackets removes one level of surrounding [ ] from a Tableau
// internal name. Names without brackets pass through unchanged.
func stripBrackets(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return s[1 : len(s)-1]
	}
	return s
}
