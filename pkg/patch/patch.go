package patch

import (
	"github.com/rhuss/vzero/pkg/debug"
	"github.com/rhuss/vzero/pkg/observability"
	"github.com/rhuss/vzero/pkg/tree"
)

// jsondiffpatch operation codes carried in the third slot of a delta array.
const (
	opDeleted  = 0
	opTextDiff = 2
	opMoved    = 3

	// appendMarker fills both trailing slots of an append sentinel.
	appendMarker = 9
)

// Apply returns the tree that results from applying delta to original.
// original is never modified. A nil delta returns original unchanged.
func Apply(original tree.Tree, delta any) tree.Tree {
	if delta == nil {
		return original
	}

	if path, text, ok := appendSentinel(delta); ok {
		out, applied := appendAt([]any(original), path, text)
		if !applied {
			skip("append target is not a string leaf", "path", path)
			return original
		}
		return tree.Tree(out.([]any))
	}

	if ops, ok := jsonPatchOps(delta); ok {
		return applyJSONPatch(original, ops)
	}

	out, deleted := applyDelta([]any(original), delta)
	if deleted {
		return tree.Tree{}
	}
	arr, ok := out.([]any)
	if !ok {
		skip("root delta does not produce an array", "type", typeName(out))
		return original
	}
	return tree.Tree(arr)
}

// AppendDelta builds an append sentinel delta that appends text to the
// string leaf at path.
func AppendDelta(path []int, text string) []any {
	p := make([]any, 0, len(path)+1)
	for _, i := range path {
		p = append(p, i)
	}
	p = append(p, text)
	return []any{p, appendMarker, appendMarker}
}

// skip records a delta fragment that could not be applied.
func skip(reason string, args ...any) {
	observability.PatchFragmentsSkipped.Inc()
	debug.Log("patch", "skipping delta fragment: "+reason, args...)
}

func isOp(v any, op int) bool {
	n, ok := tree.AsInt(v)
	return ok && n == op
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case bool:
		return "bool"
	default:
		return "number"
	}
}
