package medline

import (
	"encoding/xml"
	"strings"
)

// Attr is a single XML attribute. Attributes keep document order.
type Attr struct {
	Name  string
	Value string
}

// Node is a fully materialized XML element: tag name, ordered attributes,
// child elements and trimmed character data. A Node subtree exists only for
// the duration of one record's transformation.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrDefault returns the named attribute's value, or def when absent.
func (n *Node) AttrDefault(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// Find returns the first child element with the given tag, or nil.
func (n *Node) Find(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// FindAll returns every child element with the given tag, in order.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// IsLeaf reports whether the node has no element children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// readNode consumes tokens from dec until the element opened by start is
// closed, returning the materialized subtree. Character data is concatenated
// and trimmed.
func readNode(dec *xml.Decoder, start xml.StartElement) (*Node, error) {
	n := &Node{Tag: start.Name.Local}
	for _, a := range start.Attr {
		n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := readNode(dec, t)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = strings.TrimSpace(text.String())
			return n, nil
		}
	}
}
