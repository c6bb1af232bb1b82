package tree

import (
	"encoding/json"
	"fmt"
	"math"
)

// Tree is an immutable snapshot of a streamed message. Once a Tree has been
// published to subscribers it must never be modified; producers build a new
// Tree instead and may share unchanged branches with the previous one.
type Tree []any

// RowType identifies the kind of a top-level row.
type RowType int

const (
	RowBlock      RowType = 0
	RowCode       RowType = 1
	RowInlineMath RowType = 2
	RowBlockMath  RowType = 3

	// RowUnknown is reported for rows whose type tag is not an integer
	// understood by this package. The raw row is still available.
	RowUnknown RowType = -1
)

// String returns a short name for the row type.
func (t RowType) String() string {
	switch t {
	case RowBlock:
		return "block"
	case RowCode:
		return "code"
	case RowInlineMath:
		return "inline-math"
	case RowBlockMath:
		return "block-math"
	default:
		return "unknown"
	}
}

// Row is a read-only view of one top-level row.
type Row struct {
	// Type is the decoded row type, or RowUnknown.
	Type RowType
	// Tag is the raw integer tag. It equals int(Type) for known rows and
	// carries the original value for forward-compatible row types.
	Tag int
	// Payload holds the row elements after the type tag.
	Payload []any
	// Raw is the row exactly as stored in the tree.
	Raw any
}

// Parse decodes a JSON document into a Tree. A JSON null decodes to an
// empty tree.
func Parse(data []byte) (Tree, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding tree: %w", err)
	}
	if v == nil {
		return Tree{}, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("decoding tree: expected array, got %T", v)
	}
	return Tree(arr), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// static fixtures.
func MustParse(s string) Tree {
	t, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t Tree) Len() int { return len(t) }

// Empty reports whether the tree has no rows.
func (t Tree) Empty() bool { return len(t) == 0 }

// Rows returns typed views over all rows. Rows that are not arrays are
// reported as RowUnknown with an empty payload.
func (t Tree) Rows() []Row {
	rows := make([]Row, 0, len(t))
	for _, raw := range t {
		rows = append(rows, NewRow(raw))
	}
	return rows
}

// NewRow builds a Row view from a raw row value.
func NewRow(raw any) Row {
	arr, ok := raw.([]any)
	if !ok || len(arr) == 0 {
		return Row{Type: RowUnknown, Tag: -1, Raw: raw}
	}
	tag, ok := AsInt(arr[0])
	if !ok {
		return Row{Type: RowUnknown, Tag: -1, Payload: arr[1:], Raw: raw}
	}
	r := Row{Type: RowUnknown, Tag: tag, Payload: arr[1:], Raw: raw}
	switch RowType(tag) {
	case RowBlock, RowCode, RowInlineMath, RowBlockMath:
		r.Type = RowType(tag)
	}
	return r
}

// Elements returns the block content of a block row. ok is false when the
// row is not a block row or its payload is not (yet) an element array, which
// happens while a frame is still in flight.
func (r Row) Elements() ([]Element, bool) {
	if r.Type != RowBlock || len(r.Payload) == 0 {
		return nil, false
	}
	arr, ok := r.Payload[0].([]any)
	if !ok {
		return nil, false
	}
	return ParseElements(arr), true
}

// Code returns the language and source of a code row.
func (r Row) Code() (lang, code string, ok bool) {
	if r.Type != RowCode {
		return "", "", false
	}
	if len(r.Payload) > 0 {
		lang, _ = r.Payload[0].(string)
	}
	if len(r.Payload) > 1 {
		code, _ = r.Payload[1].(string)
	}
	return lang, code, true
}

// Math returns the expression of an inline or block math row.
func (r Row) Math() (expr string, ok bool) {
	if r.Type != RowInlineMath && r.Type != RowBlockMath {
		return "", false
	}
	if len(r.Payload) > 0 {
		expr, _ = r.Payload[0].(string)
	}
	return expr, true
}

// Clone returns a deep copy of the tree. Published trees are immutable, so
// Clone is only needed by callers that want to modify a private copy.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	return Tree(CloneValue([]any(t)).([]any))
}

// CloneValue deep-copies a JSON-decoded value.
func CloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = CloneValue(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}

// AsInt converts a JSON number (or Go integer) to int. It returns false for
// non-numbers and for numbers with a fractional part.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
