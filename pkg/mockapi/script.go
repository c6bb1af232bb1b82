package mockapi

import (
	"strings"
	"unicode/utf8"

	"github.com/rhuss/vzero/pkg/patch"
	"github.com/rhuss/vzero/pkg/tree"
)

// Reply builds the assistant tree for a user message.
type Reply func(message string) tree.Tree

// EchoReply answers with a paragraph quoting the message and, for messages
// mentioning code, a short Go snippet.
func EchoReply(message string) tree.Tree {
	t := tree.Tree{
		[]any{float64(tree.RowBlock), []any{
			[]any{"p", map[string]any{}, "You said: " + message},
		}},
	}
	if strings.Contains(strings.ToLower(message), "code") {
		t = append(t, []any{float64(tree.RowCode), "go", "package main\n\nfunc main() {}\n"})
	}
	return t
}

// Script returns the deltas that build final from an empty tree. Block rows
// whose first element is a paragraph with a single text child are added with
// empty text, which then grows through append deltas of at most chunk runes.
// All other rows arrive as one structural diff each.
func Script(final tree.Tree, chunk int) []any {
	if chunk <= 0 {
		chunk = 16
	}

	var deltas []any
	cur := tree.Tree{}
	for i, raw := range final {
		next := append(cur.Clone(), tree.CloneValue(raw))

		if text, ok := growableText(raw); ok && text != "" {
			skeleton := tree.CloneValue(raw).([]any)
			setGrowableText(skeleton, "")
			next[i] = skeleton
			deltas = append(deltas, patch.Diff(cur, next))
			for _, piece := range splitRunes(text, chunk) {
				deltas = append(deltas, patch.AppendDelta([]int{i, 1, 0, 2}, piece))
			}
			next[i] = tree.CloneValue(raw)
			cur = next
			continue
		}

		if d := patch.Diff(cur, next); d != nil {
			deltas = append(deltas, d)
		}
		cur = next
	}
	return deltas
}

// growableText returns the text at [1, 0, 2] of a block row shaped
// [0, [["p", attrs, "text"], ...]].
func growableText(raw any) (string, bool) {
	row := tree.NewRow(raw)
	if row.Type != tree.RowBlock || len(row.Payload) == 0 {
		return "", false
	}
	els, ok := row.Payload[0].([]any)
	if !ok || len(els) == 0 {
		return "", false
	}
	p, ok := els[0].([]any)
	if !ok || len(p) != 3 || p[0] != "p" {
		return "", false
	}
	text, ok := p[2].(string)
	return text, ok
}

func setGrowableText(row []any, text string) {
	row[1].([]any)[0].([]any)[2] = text
}

func splitRunes(s string, n int) []string {
	var out []string
	for len(s) > 0 {
		end, count := 0, 0
		for end < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			count++
		}
		out = append(out, s[:end])
		s = s[end:]
	}
	return out
}
