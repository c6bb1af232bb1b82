package render

import (
	"fmt"
	"strings"

	"github.com/rhuss/vzero/pkg/tree"
)

// Renderer converts trees to text using a fixed Capabilities table.
type Renderer struct {
	caps Capabilities
}

// New returns a Renderer. Nil capabilities fall back to plain rendering.
func New(caps Capabilities) *Renderer {
	return &Renderer{caps: caps.withFallbacks()}
}

// Render returns the text of all renderable rows, separated by blank lines.
func (r *Renderer) Render(t tree.Tree) string {
	var blocks []string
	for _, row := range t.Rows() {
		if s := r.row(row); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// RenderError formats a stream error.
func (r *Renderer) RenderError(msg string) string {
	return r.caps.Error(msg)
}

func (r *Renderer) row(row tree.Row) string {
	switch row.Type {
	case tree.RowBlock:
		els, ok := row.Elements()
		if !ok {
			return ""
		}
		return strings.TrimSpace(r.blocks(els))
	case tree.RowCode:
		lang, code, _ := row.Code()
		return r.caps.Code(lang, code)
	case tree.RowInlineMath, tree.RowBlockMath:
		expr, _ := row.Math()
		return r.caps.Math(expr, row.Type == tree.RowBlockMath)
	default:
		return fmt.Sprintf("[unsupported row %d]", row.Tag)
	}
}

// blocks renders block-level elements, each ending in its own line break.
func (r *Renderer) blocks(els []tree.Element) string {
	var b strings.Builder
	for _, el := range els {
		switch e := el.(type) {
		case tree.Text:
			b.WriteString(string(e))
		case *tree.Node:
			r.block(&b, e)
		}
	}
	return b.String()
}

func (r *Renderer) block(b *strings.Builder, n *tree.Node) {
	switch n.Tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		b.WriteString(r.caps.Heading(int(n.Tag[1]-'0'), r.inline(n.Children)))
		b.WriteString("\n\n")
	case "p":
		b.WriteString(r.inline(n.Children))
		b.WriteString("\n\n")
	case "ul", "ol":
		i := 1
		for _, c := range n.Children {
			li, ok := c.(*tree.Node)
			if !ok || li.Tag != "li" {
				continue
			}
			bullet := "- "
			if n.Tag == "ol" {
				bullet = fmt.Sprintf("%d. ", i)
				i++
			}
			b.WriteString(bullet)
			b.WriteString(strings.TrimSpace(r.blocks(li.Children)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	case "pre":
		lang := n.Attr("lang")
		if lang == "" {
			lang = n.Attr("language")
		}
		b.WriteString(r.caps.Code(lang, n.Text()))
		b.WriteString("\n\n")
	case "blockquote":
		for _, line := range strings.Split(strings.TrimSpace(r.blocks(n.Children)), "\n") {
			b.WriteString("> " + line + "\n")
		}
		b.WriteString("\n")
	case "hr":
		b.WriteString("---\n\n")
	default:
		b.WriteString(r.inline([]tree.Element{n}))
	}
}

// inline renders phrasing content on a single logical line.
func (r *Renderer) inline(els []tree.Element) string {
	var b strings.Builder
	for _, el := range els {
		switch e := el.(type) {
		case tree.Text:
			b.WriteString(string(e))
		case *tree.Node:
			switch e.Tag {
			case tree.TagText:
				b.WriteString(e.Text())
			case tree.TagContentPart:
				if p, ok := e.Part(); ok {
					b.WriteString(r.caps.Part(p))
				}
			case "code":
				b.WriteString("`" + e.Text() + "`")
			case "strong", "b":
				b.WriteString("**" + r.inline(e.Children) + "**")
			case "em", "i":
				b.WriteString("_" + r.inline(e.Children) + "_")
			case "a":
				text := r.inline(e.Children)
				if href := e.Attr("href"); href != "" && href != text {
					text += " (" + href + ")"
				}
				b.WriteString(text)
			case "br":
				b.WriteString("\n")
			case "math":
				b.WriteString(r.caps.Math(e.Text(), false))
			default:
				b.WriteString(r.inline(e.Children))
			}
		}
	}
	return b.String()
}
