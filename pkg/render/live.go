package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rhuss/vzero/pkg/tree"
)

// Live writes a growing tree to a terminal without redrawing. When the new
// rendering extends the previous one only the added suffix is written;
// otherwise the full rendering is written after a separator.
type Live struct {
	w io.Writer
	r *Renderer

	mu      sync.Mutex
	printed string
}

// NewLive returns a Live writer rendering with r.
func NewLive(w io.Writer, r *Renderer) *Live {
	return &Live{w: w, r: r}
}

// Update writes the part of t not yet shown.
func (l *Live) Update(t tree.Tree) {
	text := l.r.Render(t)

	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case text == l.printed:
		return
	case strings.HasPrefix(text, l.printed):
		fmt.Fprint(l.w, text[len(l.printed):])
	default:
		fmt.Fprint(l.w, "\n--- updated ---\n"+text)
	}
	l.printed = text
}

// Fail writes a rendered error on its own line.
func (l *Live) Fail(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.printed != "" {
		fmt.Fprintln(l.w)
	}
	fmt.Fprintln(l.w, l.r.RenderError(msg))
	l.printed = ""
}

// Finish terminates the output with a newline.
func (l *Live) Finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.printed != "" {
		fmt.Fprintln(l.w)
	}
}
