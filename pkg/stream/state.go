package stream

import "github.com/rhuss/vzero/pkg/tree"

// State is an immutable snapshot of a stream's progress. A published State
// is never modified; every change publishes a new one.
type State struct {
	// Content is the message tree reconstructed so far.
	Content tree.Tree

	// IsStreaming is true while a run is reading its Body.
	IsStreaming bool

	// Error is a human readable description of a failed run.
	Error string

	// IsComplete is true once the run saw a completion frame or EOF.
	IsComplete bool
}

// Callbacks receive per-event notifications from a run. Nil fields are
// skipped. All callbacks run on the goroutine that called ProcessStream, in
// frame order.
type Callbacks struct {
	// OnChunk receives the tree after each applied delta.
	OnChunk func(tree.Tree)

	// OnComplete receives the final tree.
	OnComplete func(tree.Tree)

	// OnError receives the failure message of an errored run.
	OnError func(string)

	// OnChatData receives out-of-band chat metadata frames.
	OnChatData func(map[string]any)
}

var initialState = &State{Content: tree.Tree{}}
