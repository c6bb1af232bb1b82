package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// frameWriter writes one frame per line and flushes after each. In SSE mode
// lines carry the "data: " prefix and are followed by a blank line.
type frameWriter struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	raw bool

	started bool
	done    bool
}

func newFrameWriter(w http.ResponseWriter, raw bool) *frameWriter {
	return &frameWriter{w: w, rc: http.NewResponseController(w), raw: raw}
}

func (f *frameWriter) start() {
	if f.started {
		return
	}
	f.started = true
	if f.raw {
		f.w.Header().Set("Content-Type", "application/x-ndjson")
	} else {
		f.w.Header().Set("Content-Type", "text/event-stream")
	}
	f.w.Header().Set("Cache-Control", "no-cache")
	f.w.Header().Set("Connection", "keep-alive")
}

// writeJSON marshals v and writes it as one frame.
func (f *frameWriter) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	return f.writeLine(string(data))
}

// writeLine writes payload as one frame.
func (f *frameWriter) writeLine(payload string) error {
	if f.done {
		return errors.New("cannot write frame: stream is done")
	}
	f.start()

	var err error
	if f.raw {
		_, err = fmt.Fprintf(f.w, "%s\n", payload)
	} else {
		_, err = fmt.Fprintf(f.w, "data: %s\n\n", payload)
	}
	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if err := f.rc.Flush(); err != nil {
		return fmt.Errorf("flushing frame: %w", err)
	}
	return nil
}

// writeDone ends the stream. The [DONE] marker is only defined for SSE
// framing; raw streams end at EOF.
func (f *frameWriter) writeDone() error {
	if f.done {
		return nil
	}
	if !f.raw {
		if err := f.writeLine("[DONE]"); err != nil {
			return err
		}
	}
	f.done = true
	return nil
}
