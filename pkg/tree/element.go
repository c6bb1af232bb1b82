package tree

// Element is a node inside a block row: either Text or *Node.
type Element interface {
	isElement()
}

// Text is a literal text element.
type Text string

func (Text) isElement() {}

// Node is a structural element `[tag, attrs, ...children]`.
type Node struct {
	Tag      string
	Attrs    map[string]any
	Children []Element
}

func (*Node) isElement() {}

const (
	// TagText wraps a single literal child.
	TagText = "text"

	// TagContentPart marks a provider-specific content part. Its attributes
	// carry the part payload under the "part" key.
	TagContentPart = "AssistantMessageContentPart"
)

// ParseElements converts a raw element list. Values that are neither strings
// nor well-formed element arrays are dropped; they usually belong to a frame
// that has not fully arrived yet.
func ParseElements(raw []any) []Element {
	out := make([]Element, 0, len(raw))
	for _, v := range raw {
		if el, ok := ParseElement(v); ok {
			out = append(out, el)
		}
	}
	return out
}

// ParseElement converts one raw element.
func ParseElement(v any) (Element, bool) {
	switch x := v.(type) {
	case string:
		return Text(x), true
	case []any:
		if len(x) == 0 {
			return nil, false
		}
		tag, ok := x[0].(string)
		if !ok {
			return nil, false
		}
		n := &Node{Tag: tag}
		if len(x) > 1 {
			n.Attrs, _ = x[1].(map[string]any)
		}
		if len(x) > 2 {
			n.Children = ParseElements(x[2:])
		}
		return n, true
	default:
		return nil, false
	}
}

// Text returns the literal of a "text" node, or the concatenated text of all
// descendants for any other node.
func (n *Node) Text() string {
	var buf []byte
	var walk func(els []Element)
	walk = func(els []Element) {
		for _, el := range els {
			switch e := el.(type) {
			case Text:
				buf = append(buf, e...)
			case *Node:
				walk(e.Children)
			}
		}
	}
	walk(n.Children)
	return string(buf)
}

// Attr returns a string attribute.
func (n *Node) Attr(name string) string {
	s, _ := n.Attrs[name].(string)
	return s
}

// Part decodes the content part carried by a content-part node.
func (n *Node) Part() (Part, bool) {
	if n.Tag != TagContentPart {
		return nil, false
	}
	raw, ok := n.Attrs["part"].(map[string]any)
	if !ok {
		return nil, false
	}
	return ParsePart(raw), true
}
