// Package xmlfmt implements the XML tree format of spec.md §4.7 and §6.1:
// parsing a <root BTCPP_format="4"> document into registered tree
// definitions, instantiating a registered definition into a runtime tree,
// and exporting a built tree back to the same XML shape with Groot2-style
// metadata (§6.5).
//
// Grounded on stdlib encoding/xml token scanning (no third-party XML
// parser appears anywhere in the example corpus, and the document shape
// here is recursive/schema-free — an arbitrary element tag names a
// behavior id — which rules out struct-tag unmarshaling of the kind the
// Solifugus-teraglest example uses for its fixed-schema unit/faction
// files).
package xmlfmt

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/arborist-labs/bteng/internal/bterr"
)

// Element is a generic, order-preserving XML element: its tag, its
// attributes in document order, and its child elements. Attribute/element
// order matters for §3.4 (remappings keep document order) and §4.7 (the
// parser applies reserved-attribute handling before generic port
// resolution, but both walk the same ordered attribute list).
type Element struct {
	Tag   string
	Attrs []xml.Attr
	Kids  []*Element

	// Start/End are byte offsets into the source text this element was
	// parsed from, spanning from '<tag' to the matching '</tag>' (or the
	// self-closing '/>'). Used to capture a <BehaviorTree>'s byte range
	// for TreeDef (§4.7).
	Start, End int
}

// Attr returns the value of the named attribute, if present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// parseDocument scans the full source text into a tree of Elements rooted
// at the document's single top-level element (<root>).
func parseDocument(source string) (*Element, error) {
	dec := xml.NewDecoder(strings.NewReader(source))
	dec.Strict = true

	var stack []*Element
	var root *Element

	for {
		startOffset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, bterr.Parsef("malformed XML: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Tag: t.Name.Local, Attrs: append([]xml.Attr(nil), t.Attr...), Start: int(startOffset)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Kids = append(parent.Kids, el)
			} else if root != nil {
				return nil, bterr.Parsef("XML document has more than one root element")
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, bterr.Parsef("unmatched closing tag </%s>", t.Name.Local)
			}
			el := stack[len(stack)-1]
			el.End = int(dec.InputOffset())
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = el
			}
		}
	}
	if root == nil {
		return nil, bterr.Parsef("XML document has no root element")
	}
	if len(stack) != 0 {
		return nil, bterr.Parsef("unclosed element <%s>", stack[len(stack)-1].Tag)
	}
	return root, nil
}

func (e *Element) String() string {
	var b strings.Builder
	e.write(&b, 0)
	return b.String()
}

func (e *Element) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s<%s", indent, e.Tag)
	for _, a := range e.Attrs {
		fmt.Fprintf(b, " %s=%q", a.Name.Local, a.Value)
	}
	if len(e.Kids) == 0 {
		b.WriteString("/>\n")
		return
	}
	b.WriteString(">\n")
	for _, k := range e.Kids {
		k.write(b, depth+1)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, e.Tag)
}
