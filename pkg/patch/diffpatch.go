package patch

import (
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/rhuss/vzero/pkg/tree"
)

// applyDelta applies a jsondiffpatch delta to value. deleted reports that
// the delta removes value from its parent.
func applyDelta(value any, delta any) (result any, deleted bool) {
	switch d := delta.(type) {
	case []any:
		switch len(d) {
		case 1:
			return d[0], false
		case 2:
			return d[1], false
		case 3:
			switch {
			case isOp(d[2], opDeleted):
				return nil, true
			case isOp(d[2], opTextDiff):
				return applyTextDiff(value, d[0]), false
			case isOp(d[2], opMoved):
				// Moves are resolved by the enclosing array delta.
				return value, false
			}
		}
		skip("unrecognized delta array", "len", len(d))
		return value, false

	case map[string]any:
		if t, _ := d["_t"].(string); t == "a" {
			arr, ok := value.([]any)
			if !ok {
				skip("array delta on non-array", "type", typeName(value))
				return value, false
			}
			return applyArrayDelta(arr, d), false
		}
		obj, ok := value.(map[string]any)
		if !ok {
			skip("object delta on non-object", "type", typeName(value))
			return value, false
		}
		return applyObjectDelta(obj, d), false
	}

	skip("unrecognized delta", "type", typeName(delta))
	return value, false
}

func applyObjectDelta(obj map[string]any, delta map[string]any) map[string]any {
	out := maps.Clone(obj)
	for key, sub := range delta {
		cur, exists := out[key]
		if !exists && !isAddition(sub) {
			skip("object key missing", "key", key)
			continue
		}
		res, deleted := applyDelta(cur, sub)
		if deleted {
			delete(out, key)
			continue
		}
		out[key] = res
	}
	return out
}

type arrayInsert struct {
	index int
	value any
}

type arrayRemoval struct {
	index int
	delta []any
}

type arrayModify struct {
	index int
	delta any
}

// applyArrayDelta follows jsondiffpatch ordering: removals and move sources
// by descending old index, then insertions and move targets by ascending new
// index, then nested modifications at new indices.
func applyArrayDelta(arr []any, delta map[string]any) []any {
	out := make([]any, len(arr))
	copy(out, arr)

	var (
		removals []arrayRemoval
		inserts  []arrayInsert
		modifies []arrayModify
	)

	for key, sub := range delta {
		if key == "_t" {
			continue
		}
		if rest, ok := strings.CutPrefix(key, "_"); ok {
			idx, err := strconv.Atoi(rest)
			sd, isArr := sub.([]any)
			if err != nil || !isArr || len(sd) != 3 || !(isOp(sd[2], opDeleted) || isOp(sd[2], opMoved)) {
				skip("invalid array removal", "key", key)
				continue
			}
			removals = append(removals, arrayRemoval{index: idx, delta: sd})
			continue
		}
		idx, err := strconv.Atoi(key)
		if err != nil {
			skip("invalid array index", "key", key)
			continue
		}
		if isAddition(sub) {
			inserts = append(inserts, arrayInsert{index: idx, value: sub.([]any)[0]})
			continue
		}
		modifies = append(modifies, arrayModify{index: idx, delta: sub})
	}

	sort.Slice(removals, func(i, j int) bool { return removals[i].index > removals[j].index })
	for _, r := range removals {
		if r.index < 0 || r.index >= len(out) {
			skip("array removal out of range", "index", r.index, "len", len(out))
			continue
		}
		removed := out[r.index]
		out = slices.Delete(out, r.index, r.index+1)
		if isOp(r.delta[2], opMoved) {
			dest, ok := tree.AsInt(r.delta[1])
			if !ok {
				skip("invalid move target", "index", r.index)
				continue
			}
			inserts = append(inserts, arrayInsert{index: dest, value: removed})
		}
	}

	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].index < inserts[j].index })
	for _, ins := range inserts {
		idx := ins.index
		if idx < 0 {
			skip("array insert out of range", "index", idx)
			continue
		}
		if idx > len(out) {
			// Keep the value rather than dropping streamed content.
			idx = len(out)
		}
		out = slices.Insert(out, idx, ins.value)
	}

	for _, m := range modifies {
		if m.index < 0 || m.index >= len(out) {
			skip("array modify out of range", "index", m.index, "len", len(out))
			continue
		}
		res, deleted := applyDelta(out[m.index], m.delta)
		if deleted {
			skip("array delete must use an underscore key", "index", m.index)
			continue
		}
		out[m.index] = res
	}

	return out
}

func applyTextDiff(value any, patchText any) any {
	s, ok := value.(string)
	if !ok {
		skip("text diff on non-string", "type", typeName(value))
		return value
	}
	text, ok := patchText.(string)
	if !ok {
		skip("text diff payload is not a string")
		return value
	}

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(text)
	if err != nil {
		skip("malformed text diff", "error", err.Error())
		return value
	}
	out, applied := dmp.PatchApply(patches, s)
	for _, ok := range applied {
		if !ok {
			skip("text diff hunk did not apply")
			return value
		}
	}
	return out
}

// isAddition reports whether sub is a jsondiffpatch addition, [value].
func isAddition(sub any) bool {
	d, ok := sub.([]any)
	return ok && len(d) == 1
}
