package patch

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/rhuss/vzero/pkg/tree"
)

// jsonPatchOps recognizes an RFC 6902 operation list.
func jsonPatchOps(delta any) ([]map[string]any, bool) {
	d, ok := delta.([]any)
	if !ok || len(d) == 0 {
		return nil, false
	}
	ops := make([]map[string]any, 0, len(d))
	for _, v := range d {
		op, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if _, ok := op["op"].(string); !ok {
			return nil, false
		}
		ops = append(ops, op)
	}
	return ops, true
}

// applyJSONPatch applies ops one at a time so a failing operation only
// drops itself.
func applyJSONPatch(original tree.Tree, ops []map[string]any) tree.Tree {
	if original == nil {
		original = tree.Tree{}
	}
	doc, err := json.Marshal(original)
	if err != nil {
		skip("encoding tree for JSON patch", "error", err.Error())
		return original
	}

	opts := jsonpatch.NewApplyOptions()
	opts.AllowMissingPathOnRemove = true

	applied := 0
	for _, op := range ops {
		raw, err := json.Marshal([]map[string]any{op})
		if err != nil {
			skip("encoding JSON patch op", "error", err.Error())
			continue
		}
		p, err := jsonpatch.DecodePatch(raw)
		if err != nil {
			skip("decoding JSON patch op", "error", err.Error())
			continue
		}
		next, err := p.ApplyWithOptions(doc, opts)
		if err != nil {
			skip("JSON patch op failed", "op", op["op"], "path", op["path"], "error", err.Error())
			continue
		}
		doc = next
		applied++
	}
	if applied == 0 {
		return original
	}

	out, err := tree.Parse(doc)
	if err != nil {
		skip("JSON patch result is not a tree", "error", err.Error())
		return original
	}
	return out
}
