package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Node is a namespace-prefix preserving XML element tree.
//
// encoding/xml resolves prefixes to namespace URIs on Unmarshal and writes
// default-namespace redeclarations on Marshal, which Word tolerates badly.
// Nodes are built from RawToken so "w:p" stays "w:p" on the way back out.
type Node struct {
	Name     xml.Name // Space holds the prefix, not the URI
	Attr     []xml.Attr
	Children []*Node

	text   string
	isText bool
}

func newElement(prefix, local string, attr ...xml.Attr) *Node {
	return &Node{Name: xml.Name{Space: prefix, Local: local}, Attr: attr}
}

func newText(s string) *Node {
	return &Node{text: s, isText: true}
}

// IsText reports whether the node is character data.
func (n *Node) IsText() bool { return n.isText }

// Text returns the character data of a text node.
func (n *Node) Text() string { return n.text }

// Local returns the element's local name.
func (n *Node) Local() string { return n.Name.Local }

// Prefix returns the element's namespace prefix.
func (n *Node) Prefix() string { return n.Name.Space }

// Elements returns the element children in document order.
func (n *Node) Elements() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if !c.isText {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first element child with the given local name.
func (n *Node) Child(local string) *Node {
	for _, c := range n.Children {
		if !c.isText && c.Name.Local == local {
			return c
		}
	}
	return nil
}

// AttrValue returns the value of the first attribute with the given local name.
func (n *Node) AttrValue(local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// CharData returns the concatenated character data directly under n.
func (n *Node) CharData() string {
	var buf bytes.Buffer
	for _, c := range n.Children {
		if c.isText {
			buf.WriteString(c.text)
		}
	}
	return buf.String()
}

// Append adds children to n and returns n.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Name:   n.Name,
		text:   n.text,
		isText: n.isText,
	}
	if n.Attr != nil {
		c.Attr = make([]xml.Attr, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Decode unmarshals the subtree into v using plain encoding/xml struct tags.
// Prefixes are left undeclared, so tags must match on local names only.
func (n *Node) Decode(v any) error {
	var buf bytes.Buffer
	n.write(&buf)
	return xml.Unmarshal(buf.Bytes(), v)
}

// Bytes serializes the subtree.
func (n *Node) Bytes() []byte {
	var buf bytes.Buffer
	n.write(&buf)
	return buf.Bytes()
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func (n *Node) write(buf *bytes.Buffer) {
	if n.isText {
		_ = xml.EscapeText(buf, []byte(n.text))
		return
	}
	buf.WriteByte('<')
	buf.WriteString(qualified(n.Name))
	for _, a := range n.Attr {
		buf.WriteByte(' ')
		buf.WriteString(qualified(a.Name))
		buf.WriteString(`="`)
		_ = xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	if len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	for _, c := range n.Children {
		c.write(buf)
	}
	buf.WriteString("</")
	buf.WriteString(qualified(n.Name))
	buf.WriteByte('>')
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// marshalDocument writes root with an XML declaration.
func marshalDocument(root *Node) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	root.write(&buf)
	return buf.Bytes()
}

// parseTree builds a Node tree from raw XML, dropping comments, processing
// instructions and directives.
func parseTree(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Name: t.Name}
			if len(t.Attr) > 0 {
				el.Attr = make([]xml.Attr, len(t.Attr))
				copy(el.Attr, t.Attr)
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element %s", qualified(t.Name))
			}
			top := stack[len(stack)-1]
			if top.Name != t.Name {
				return nil, fmt.Errorf("element %s closed by %s", qualified(top.Name), qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, newText(string(t)))
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %s", qualified(stack[len(stack)-1].Name))
	}
	return root, nil
}
