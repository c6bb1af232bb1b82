package patch

import (
	"reflect"
	"strconv"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/rhuss/vzero/pkg/tree"
)

// textDiffMinLength is the shortest string pair for which Diff emits a text
// patch instead of a full replacement.
const textDiffMinLength = 60

// Diff returns a jsondiffpatch delta that turns a into b, or nil when they
// are deeply equal. Apply(a, Diff(a, b)) is deeply equal to b.
func Diff(a, b any) any {
	a, b = normalize(a), normalize(b)
	if reflect.DeepEqual(a, b) {
		return nil
	}

	switch av := a.(type) {
	case []any:
		if bv, ok := b.([]any); ok {
			return diffArrays(av, bv)
		}
	case map[string]any:
		if bv, ok := b.(map[string]any); ok {
			return diffObjects(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok && len(av) >= textDiffMinLength && len(bv) >= textDiffMinLength {
			dmp := diffmatchpatch.New()
			return []any{dmp.PatchToText(dmp.PatchMake(av, bv)), 0, opTextDiff}
		}
	}
	return []any{a, b}
}

func diffArrays(a, b []any) map[string]any {
	d := map[string]any{"_t": "a"}
	common := min(len(a), len(b))
	for i := 0; i < common; i++ {
		if sub := Diff(a[i], b[i]); sub != nil {
			d[strconv.Itoa(i)] = sub
		}
	}
	for i := common; i < len(a); i++ {
		d["_"+strconv.Itoa(i)] = []any{a[i], 0, opDeleted}
	}
	for i := common; i < len(b); i++ {
		d[strconv.Itoa(i)] = []any{b[i]}
	}
	return d
}

func diffObjects(a, b map[string]any) map[string]any {
	d := make(map[string]any)
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			d[k] = []any{av, 0, opDeleted}
			continue
		}
		if sub := Diff(av, bv); sub != nil {
			d[k] = sub
		}
	}
	for k, bv := range b {
		if _, ok := a[k]; !ok {
			d[k] = []any{bv}
		}
	}
	return d
}

func normalize(v any) any {
	if t, ok := v.(tree.Tree); ok {
		return []any(t)
	}
	return v
}
