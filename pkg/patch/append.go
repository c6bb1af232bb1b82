package patch

import (
	"maps"

	"github.com/rhuss/vzero/pkg/tree"
)

// appendSentinel recognizes [[...path, text], 9, 9].
func appendSentinel(delta any) (path []any, text string, ok bool) {
	d, isArr := delta.([]any)
	if !isArr || len(d) != 3 || !isOp(d[1], appendMarker) || !isOp(d[2], appendMarker) {
		return nil, "", false
	}
	p, isArr := d[0].([]any)
	if !isArr || len(p) < 2 {
		return nil, "", false
	}
	text, ok = p[len(p)-1].(string)
	if !ok {
		return nil, "", false
	}
	return p[:len(p)-1], text, true
}

// appendAt copies the containers along path and concatenates text onto the
// string found at its end. Siblings of the path are shared with node.
func appendAt(node any, path []any, text string) (any, bool) {
	if len(path) == 0 {
		s, ok := node.(string)
		if !ok {
			return node, false
		}
		return s + text, true
	}

	switch n := node.(type) {
	case []any:
		i, ok := tree.AsInt(path[0])
		if !ok || i < 0 || i >= len(n) {
			return node, false
		}
		child, ok := appendAt(n[i], path[1:], text)
		if !ok {
			return node, false
		}
		out := make([]any, len(n))
		copy(out, n)
		out[i] = child
		return out, true

	case map[string]any:
		key, ok := path[0].(string)
		if !ok {
			return node, false
		}
		cur, exists := n[key]
		if !exists {
			return node, false
		}
		child, ok := appendAt(cur, path[1:], text)
		if !ok {
			return node, false
		}
		out := maps.Clone(n)
		out[key] = child
		return out, true
	}

	return node, false
}
