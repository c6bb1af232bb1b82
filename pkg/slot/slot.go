// Package slot adapts a stream.Processor to pull-based consumers such as a
// terminal UI that redraws on notification and reads a snapshot.
package slot

import (
	"context"
	"sync"
	"weak"

	"github.com/rhuss/vzero/pkg/debug"
	"github.com/rhuss/vzero/pkg/stream"
	"github.com/rhuss/vzero/pkg/tree"
)

// View is the presentation-facing projection of a stream state.
type View struct {
	*stream.State

	// HasContent is true once at least one row has arrived.
	HasContent bool

	// IsLoading is true while streaming with no content yet.
	IsLoading bool

	// HasError is true when the run failed.
	HasError bool
}

func newView(s *stream.State) *View {
	hasContent := s.Content.Len() > 0
	return &View{
		State:      s,
		HasContent: hasContent,
		IsLoading:  s.IsStreaming && !hasContent,
		HasError:   s.Error != "",
	}
}

// Slot holds one Processor for one logical stream position, such as a chat
// pane. The zero value is ready to use.
type Slot struct {
	mu   sync.Mutex
	proc *stream.Processor
	last weak.Pointer[stream.Body]
	cb   stream.Callbacks

	view   *View
	viewOf *stream.State
}

// New returns an empty Slot.
func New() *Slot {
	return &Slot{}
}

// Processor returns the slot's Processor, creating it on first use.
func (s *Slot) Processor() *stream.Processor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processorLocked()
}

func (s *Slot) processorLocked() *stream.Processor {
	if s.proc == nil {
		s.proc = stream.NewProcessor()
	}
	return s.proc
}

// Sync starts processing body if it is not the body seen by the previous
// call. It returns a channel closed when the started run ends, or nil when
// nothing was started. The slot does not keep body alive.
func (s *Slot) Sync(ctx context.Context, body *stream.Body) <-chan struct{} {
	if body == nil {
		return nil
	}

	s.mu.Lock()
	ref := weak.Make(body)
	if ref == s.last {
		s.mu.Unlock()
		return nil
	}
	s.last = ref
	p := s.processorLocked()
	s.mu.Unlock()

	debug.Log("stream", "slot starting run for new body")
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.ProcessStream(ctx, body, s.forward())
	}()
	return done
}

// SetCallbacks replaces the callbacks used for frames processed from now on,
// including those of a run already in progress.
func (s *Slot) SetCallbacks(cb stream.Callbacks) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

// Subscribe registers fn for state change notifications.
func (s *Slot) Subscribe(fn func()) (unsubscribe func()) {
	return s.Processor().Subscribe(fn)
}

// Snapshot returns the projection of the current state. The same pointer is
// returned until the state changes.
func (s *Slot) Snapshot() *View {
	st := s.Processor().State()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil || s.viewOf != st {
		s.view = newView(st)
		s.viewOf = st
	}
	return s.view
}

// Phase returns the lifecycle phase of the latest run.
func (s *Slot) Phase() stream.Phase {
	return s.Processor().Phase()
}

func (s *Slot) callbacks() stream.Callbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cb
}

// forward resolves the slot callbacks at call time so SetCallbacks applies
// to a running stream.
func (s *Slot) forward() stream.Callbacks {
	return stream.Callbacks{
		OnChunk: func(t tree.Tree) {
			if fn := s.callbacks().OnChunk; fn != nil {
				fn(t)
			}
		},
		OnComplete: func(t tree.Tree) {
			if fn := s.callbacks().OnComplete; fn != nil {
				fn(t)
			}
		},
		OnError: func(msg string) {
			if fn := s.callbacks().OnError; fn != nil {
				fn(msg)
			}
		},
		OnChatData: func(m map[string]any) {
			if fn := s.callbacks().OnChatData; fn != nil {
				fn(m)
			}
		},
	}
}
