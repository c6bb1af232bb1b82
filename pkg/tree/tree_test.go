package tree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRows(t *testing.T) {
	tr := MustParse(`[
		[0, [["p", {}, "Hello ", ["strong", {}, "world"]]]],
		[1, "go", "package main"],
		[2, "x^2"],
		[3, "\\sum_i x_i"],
		[42, "future"],
		"not-a-row"
	]`)

	rows := tr.Rows()
	if len(rows) != 6 {
		t.Fatalf("len(rows) = %d, want 6", len(rows))
	}

	wantTypes := []RowType{RowBlock, RowCode, RowInlineMath, RowBlockMath, RowUnknown, RowUnknown}
	for i, want := range wantTypes {
		if rows[i].Type != want {
			t.Errorf("rows[%d].Type = %v, want %v", i, rows[i].Type, want)
		}
	}
	if rows[4].Tag != 42 {
		t.Errorf("unknown row tag = %d, want 42", rows[4].Tag)
	}

	lang, code, ok := rows[1].Code()
	if !ok || lang != "go" || code != "package main" {
		t.Errorf("Code() = %q, %q, %v", lang, code, ok)
	}

	expr, ok := rows[3].Math()
	if !ok || expr != `\sum_i x_i` {
		t.Errorf("Math() = %q, %v", expr, ok)
	}

	els, ok := rows[0].Elements()
	if !ok {
		t.Fatal("block row should be renderable")
	}
	p, ok := els[0].(*Node)
	if !ok || p.Tag != "p" {
		t.Fatalf("first element = %#v, want <p> node", els[0])
	}
	if got := p.Text(); got != "Hello world" {
		t.Errorf("Text() = %q, want %q", got, "Hello world")
	}
}

func TestElements_NotYetRenderable(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"missing payload", `[0]`},
		{"string payload", `[0, "partial"]`},
		{"object payload", `[0, {"a": 1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := MustParse("[" + tt.row + "]")
			if _, ok := tr.Rows()[0].Elements(); ok {
				t.Error("Elements() ok = true, want false")
			}
		})
	}
}

func TestParseElements_DropsMalformed(t *testing.T) {
	els := ParseElements([]any{"a", []any{}, []any{float64(1)}, float64(3), []any{"br", nil}})
	if len(els) != 2 {
		t.Fatalf("len = %d, want 2: %#v", len(els), els)
	}
	if els[0] != Text("a") {
		t.Errorf("els[0] = %#v", els[0])
	}
	if n := els[1].(*Node); n.Tag != "br" || n.Attrs != nil {
		t.Errorf("els[1] = %#v", n)
	}
}

func TestClone(t *testing.T) {
	orig := MustParse(`[[0, [["p", {"class": "x"}, "hi"]]]]`)
	cp := orig.Clone()

	if diff := cmp.Diff(orig, cp); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	cp[0].([]any)[1].([]any)[0].([]any)[1].(map[string]any)["class"] = "y"
	if got := orig[0].([]any)[1].([]any)[0].([]any)[1].(map[string]any)["class"]; got != "x" {
		t.Errorf("original mutated through clone: class = %v", got)
	}
}

func TestParse(t *testing.T) {
	if tr, err := Parse([]byte("null")); err != nil || tr == nil || len(tr) != 0 {
		t.Errorf("Parse(null) = %v, %v; want empty tree", tr, err)
	}
	if _, err := Parse([]byte(`{"a":1}`)); err == nil {
		t.Error("Parse(object) should fail")
	}
	if _, err := Parse([]byte(`[`)); err == nil {
		t.Error("Parse(truncated) should fail")
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{float64(3), 3, true},
		{3, 3, true},
		{int64(7), 7, true},
		{1.5, 0, false},
		{"3", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := AsInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("AsInt(%#v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
