package stream

import (
	"io"
	"sync"
)

// Body is a single-use byte stream, usually an HTTP response body. Identity
// is the *Body pointer: the consumed mark lives on the Body itself, so a
// discarded Body is never retained by whoever processed it.
type Body struct {
	rc io.ReadCloser

	mu        sync.Mutex
	locked    bool
	processed bool

	closeOnce sync.Once
	closeErr  error
}

// NewBody wraps rc. The Body takes ownership and closes rc once consumed.
func NewBody(rc io.ReadCloser) *Body {
	return &Body{rc: rc}
}

// NewBodyReader wraps a reader that needs no closing.
func NewBodyReader(r io.Reader) *Body {
	return NewBody(io.NopCloser(r))
}

// Acquire takes the exclusive reader lock. It returns false if the lock is
// already held.
func (b *Body) Acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locked {
		return false
	}
	b.locked = true
	return true
}

// Release gives up the reader lock.
func (b *Body) Release() {
	b.mu.Lock()
	b.locked = false
	b.mu.Unlock()
}

// Locked reports whether a reader holds the lock.
func (b *Body) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Processed reports whether a Processor has accepted the Body.
func (b *Body) Processed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processed
}

// Close closes the underlying reader. Repeated calls return the first result.
func (b *Body) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.rc.Close()
	})
	return b.closeErr
}

type claimResult int

const (
	claimed claimResult = iota
	claimAlreadyProcessed
	claimLocked
)

// claim marks the Body processed and takes the reader lock in one step.
func (b *Body) claim() claimResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.processed:
		return claimAlreadyProcessed
	case b.locked:
		return claimLocked
	}
	b.processed = true
	b.locked = true
	return claimed
}

func (b *Body) read(p []byte) (int, error) {
	return b.rc.Read(p)
}
