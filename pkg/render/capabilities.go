package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/rhuss/vzero/pkg/debug"
	"github.com/rhuss/vzero/pkg/tree"
)

// Capabilities formats the parts of a tree that need more than plain text.
// Nil fields fall back to the plain rendering.
type Capabilities struct {
	// Code renders a code row or a "pre" block.
	Code func(lang, code string) string

	// Math renders an inline or block math expression.
	Math func(expr string, block bool) string

	// Part renders an embedded content part.
	Part func(p tree.Part) string

	// Heading renders a heading of the given level (1-6).
	Heading func(level int, text string) string

	// Error renders a stream error.
	Error func(msg string) string
}

// PlainCapabilities renders without escape sequences.
func PlainCapabilities() Capabilities {
	return Capabilities{
		Code:    plainCode,
		Math:    plainMath,
		Part:    plainPart,
		Heading: plainHeading,
		Error:   plainError,
	}
}

func (c Capabilities) withFallbacks() Capabilities {
	p := PlainCapabilities()
	if c.Code == nil {
		c.Code = p.Code
	}
	if c.Math == nil {
		c.Math = p.Math
	}
	if c.Part == nil {
		c.Part = p.Part
	}
	if c.Heading == nil {
		c.Heading = p.Heading
	}
	if c.Error == nil {
		c.Error = p.Error
	}
	return c
}

func plainCode(lang, code string) string {
	return "```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```"
}

func plainMath(expr string, block bool) string {
	if block {
		return "$$\n" + expr + "\n$$"
	}
	return "$" + expr + "$"
}

func plainHeading(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

func plainError(msg string) string {
	return "error: " + msg
}

func plainPart(p tree.Part) string {
	switch x := p.(type) {
	case *tree.TaskPart:
		mark := "…"
		if x.Finished {
			mark = "✓"
		}
		return fmt.Sprintf("[%s %s]", mark, x.Name())
	case *tree.ThinkingPart:
		if x.Finished && x.DurationMs > 0 {
			return fmt.Sprintf("[thought for %.1fs]", x.DurationMs/1000)
		}
		return "[thinking]"
	default:
		return fmt.Sprintf("[%s]", p.PartType())
	}
}

// Theme holds the lipgloss styles used by DefaultCapabilities.
type Theme struct {
	Heading lipgloss.Style
	Task    lipgloss.Style
	Done    lipgloss.Style
	Think   lipgloss.Style
	Math    lipgloss.Style
	Error   lipgloss.Style

	// ChromaStyle names the chroma style for code highlighting.
	ChromaStyle string
	// Formatter names the chroma formatter, e.g. "terminal256".
	Formatter string
}

// DefaultTheme returns the built-in terminal theme.
func DefaultTheme() Theme {
	return Theme{
		Heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6347")),
		Task:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Done:    lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Think:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#555555")),
		Math:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000")),

		ChromaStyle: "monokai",
		Formatter:   "terminal256",
	}
}

// DefaultCapabilities returns terminal capabilities for theme.
func DefaultCapabilities(theme Theme) Capabilities {
	formatter := formatters.Get(theme.Formatter)
	if formatter == nil {
		formatter = formatters.Fallback
	}
	style := styles.Get(theme.ChromaStyle)

	return Capabilities{
		Code: func(lang, code string) string {
			return highlight(formatter, style, lang, code)
		},
		Math: func(expr string, block bool) string {
			return theme.Math.Render(plainMath(expr, block))
		},
		Part: func(p tree.Part) string {
			text := plainPart(p)
			switch x := p.(type) {
			case *tree.TaskPart:
				if x.Finished {
					return theme.Done.Render(text)
				}
				return theme.Task.Render(text)
			case *tree.ThinkingPart:
				return theme.Think.Render(text)
			default:
				return theme.Task.Render(text)
			}
		},
		Heading: func(level int, text string) string {
			return theme.Heading.Render(plainHeading(level, text))
		},
		Error: func(msg string) string {
			return theme.Error.Render(plainError(msg))
		},
	}
}

// highlight applies chroma syntax highlighting, falling back to plain code
// when the source cannot be tokenised.
func highlight(formatter chroma.Formatter, style *chroma.Style, lang, code string) string {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		debug.Log("render", "tokenising code failed", "lang", lang, "error", err)
		return plainCode(lang, code)
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		debug.Log("render", "formatting code failed", "lang", lang, "error", err)
		return plainCode(lang, code)
	}
	return strings.TrimRight(buf.String(), "\n")
}
