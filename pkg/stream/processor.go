package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/rhuss/vzero/pkg/debug"
	"github.com/rhuss/vzero/pkg/frame"
	"github.com/rhuss/vzero/pkg/observability"
	"github.com/rhuss/vzero/pkg/patch"
	"github.com/rhuss/vzero/pkg/tree"
)

// readBufferSize is the chunk size requested from the Body per read.
const readBufferSize = 32 * 1024

// Processor owns the state of one logical stream slot. Runs replace each
// other; the published State always belongs to the latest run. A Processor
// is safe for concurrent use.
type Processor struct {
	mu      sync.RWMutex
	state   *State
	gen     uint64
	cancel  context.CancelFunc
	life    *fsm.FSM
	subs    map[uint64]func()
	nextSub uint64
}

// NewProcessor returns a Processor in the idle phase with empty content.
func NewProcessor() *Processor {
	return &Processor{
		state: initialState,
		subs:  make(map[uint64]func()),
	}
}

// State returns the current snapshot. The pointer only changes when the
// state does.
func (p *Processor) State() *State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Phase returns the lifecycle phase of the latest run, or PhaseIdle if no
// run has started.
func (p *Processor) Phase() Phase {
	p.mu.RLock()
	life := p.life
	p.mu.RUnlock()
	if life == nil {
		return PhaseIdle
	}
	return Phase(life.Current())
}

// Subscribe registers fn to be called after every state change and returns
// a function that removes it. fn runs on the reader goroutine and must not
// block; it typically calls State.
func (p *Processor) Subscribe(fn func()) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// ProcessStream consumes body and blocks until it is exhausted, completes,
// fails or ctx is cancelled. Failures are reported through State.Error and
// cb.OnError, never returned.
//
// A body that was already accepted by any Processor is ignored. A body whose
// reader lock is held elsewhere is ignored with a warning.
func (p *Processor) ProcessStream(ctx context.Context, body *Body, cb Callbacks) {
	if body == nil {
		slog.Warn("ignoring nil stream body")
		return
	}

	switch body.claim() {
	case claimAlreadyProcessed:
		debug.Log("stream", "body already processed, ignoring")
		observability.StreamsTotal.WithLabelValues(observability.OutcomeDuplicate).Inc()
		return
	case claimLocked:
		slog.Warn("stream body is locked by another reader, ignoring")
		observability.StreamsTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		return
	}

	start := time.Now()
	observability.StreamsActive.Inc()
	defer observability.StreamsActive.Dec()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A blocked read only returns once the body is closed.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	r := p.begin(cancel, cb)
	outcome := r.consume(ctx, body)

	r.publish(func(s *State) { s.IsStreaming = false })
	if err := body.Close(); err != nil {
		debug.Log("stream", "closing body", "error", err.Error())
	}
	body.Release()

	observability.StreamsTotal.WithLabelValues(outcome).Inc()
	observability.StreamDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	debug.Log("stream", "run finished", "outcome", outcome, "duration", time.Since(start))
}

// begin supersedes any running run, resets the state and publishes it.
func (p *Processor) begin(cancel context.CancelFunc, cb Callbacks) *run {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	r := &run{
		p:       p,
		gen:     p.gen,
		cb:      cb,
		life:    newLifecycle(),
		content: tree.Tree{},
	}
	p.cancel = cancel
	p.life = r.life
	p.state = &State{Content: r.content, IsStreaming: true}
	subs := p.subscribers()
	p.mu.Unlock()

	notify(subs)
	return r
}

// subscribers returns a copy of the subscriber set. Callers hold p.mu.
func (p *Processor) subscribers() []func() {
	out := make([]func(), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func()) {
	for _, fn := range subs {
		func() {
			defer func() {
				if v := recover(); v != nil {
					slog.Error("stream subscriber panicked", "panic", v)
				}
			}()
			fn()
		}()
	}
}

// run is one ProcessStream invocation. Its fields other than p are owned by
// the reader goroutine.
type run struct {
	p       *Processor
	gen     uint64
	cb      Callbacks
	life    *fsm.FSM
	content tree.Tree
}

// stale reports whether a newer run has replaced this one.
func (r *run) stale() bool {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	return r.p.gen != r.gen
}

// publish derives a new State from the current one. Stale runs publish
// nothing.
func (r *run) publish(mutate func(*State)) {
	r.p.mu.Lock()
	if r.p.gen != r.gen {
		r.p.mu.Unlock()
		return
	}
	next := *r.p.state
	mutate(&next)
	r.p.state = &next
	subs := r.p.subscribers()
	r.p.mu.Unlock()

	notify(subs)
}

// consume reads the body until it ends and returns the outcome label. Panics
// raised by callbacks are turned into a failed run.
func (r *run) consume(ctx context.Context, body *Body) (outcome string) {
	defer func() {
		if v := recover(); v != nil {
			outcome = r.fail(ctx, fmt.Sprintf("stream processing panicked: %v", v))
		}
	}()

	transition(ctx, r.life, eventStart)

	dec := frame.NewDecoder()
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, "stream cancelled: "+err.Error())
		}

		n, err := body.read(buf)
		if n > 0 && r.handle(dec.Feed(buf[:n])) {
			return r.complete(ctx)
		}
		if errors.Is(err, io.EOF) {
			r.handle(dec.Flush())
			return r.complete(ctx)
		}
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(ctx, "stream cancelled: "+ctx.Err().Error())
			}
			return r.fail(ctx, "reading stream: "+err.Error())
		}
	}
}

// handle applies frames in order and reports whether a completion frame
// was seen.
func (r *run) handle(frames []frame.Frame) bool {
	for _, f := range frames {
		if r.stale() {
			return false
		}
		switch f.Kind {
		case frame.KindDone:
			return true
		case frame.KindChatData:
			if r.cb.OnChatData != nil {
				r.cb.OnChatData(f.ChatData)
			}
		case frame.KindDelta:
			next := patch.Apply(r.content, f.Delta)
			r.content = next
			r.publish(func(s *State) { s.Content = next })
			if r.cb.OnChunk != nil {
				r.cb.OnChunk(next)
			}
		}
	}
	return false
}

func (r *run) complete(ctx context.Context) string {
	if r.stale() {
		return observability.OutcomeSuperseded
	}
	transition(ctx, r.life, eventComplete)
	r.publish(func(s *State) { s.IsComplete = true })
	if r.cb.OnComplete != nil {
		func() {
			defer func() {
				if v := recover(); v != nil {
					slog.Error("stream completion callback panicked", "panic", v)
				}
			}()
			r.cb.OnComplete(r.content)
		}()
	}
	return observability.OutcomeCompleted
}

func (r *run) fail(ctx context.Context, msg string) string {
	if r.stale() {
		debug.Log("stream", "superseded run ended", "reason", msg)
		return observability.OutcomeSuperseded
	}
	if !transition(ctx, r.life, eventFail) {
		// Terminal runs keep their outcome.
		slog.Error("stream failure after run ended", "phase", r.life.Current(), "error", msg)
		if Phase(r.life.Current()) == PhaseCompleted {
			return observability.OutcomeCompleted
		}
		return observability.OutcomeErrored
	}
	slog.Warn("stream failed", "error", msg)
	r.publish(func(s *State) { s.Error = msg })
	if r.cb.OnError != nil {
		func() {
			defer func() {
				if v := recover(); v != nil {
					slog.Error("stream error callback panicked", "panic", v)
				}
			}()
			r.cb.OnError(msg)
		}()
	}
	return observability.OutcomeErrored
}
