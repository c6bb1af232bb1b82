package frame

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/rhuss/vzero/pkg/debug"
	"github.com/rhuss/vzero/pkg/observability"
)

const (
	ssePrefix    = "data:"
	doneSentinel = "[DONE]"
)

// sseFields are SSE field lines other than data that carry nothing the
// decoder needs.
var sseFields = []string{"event:", "id:", "retry:"}

// Decoder reassembles frames from arbitrarily split byte chunks. The zero
// value is ready to use. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf     []byte
	scanned int
	done    bool
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Done reports whether a completion frame has been decoded. A done decoder
// ignores all further input.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed appends chunk to the carry-over buffer and returns the frames of all
// complete lines. The trailing partial line is kept for the next call.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	start := 0
	for !d.done {
		i := bytes.IndexByte(d.buf[d.scanned:], '\n')
		if i < 0 {
			break
		}
		end := d.scanned + i
		if f, ok := d.decodeLine(d.buf[start:end]); ok {
			frames = append(frames, f)
		}
		start = end + 1
		d.scanned = start
	}

	if d.done {
		d.buf, d.scanned = nil, 0
		return frames
	}

	// Keep only the unterminated tail.
	rest := copy(d.buf, d.buf[start:])
	d.buf = d.buf[:rest]
	d.scanned = rest
	return frames
}

// Flush decodes whatever remains in the buffer as a final line. It is called
// once the underlying stream reports EOF.
func (d *Decoder) Flush() []Frame {
	if d.done || len(d.buf) == 0 {
		d.buf, d.scanned = nil, 0
		return nil
	}
	line := d.buf
	d.buf, d.scanned = nil, 0
	if f, ok := d.decodeLine(line); ok {
		return []Frame{f}
	}
	return nil
}

func (d *Decoder) decodeLine(raw []byte) (Frame, bool) {
	line := strings.TrimSpace(string(raw))
	if line == "" || strings.HasPrefix(line, ":") {
		return Frame{}, false
	}
	debug.Raw("frame", line)

	payload := line
	rest, sse := strings.CutPrefix(line, ssePrefix)
	if sse {
		payload = strings.TrimPrefix(rest, " ")
	} else {
		for _, field := range sseFields {
			if strings.HasPrefix(line, field) {
				return Frame{}, false
			}
		}
	}

	if sse && payload == doneSentinel {
		d.done = true
		observability.FramesTotal.WithLabelValues(observability.FrameDone).Inc()
		return Frame{Kind: KindDone, Raw: payload}, true
	}

	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		observability.FramesTotal.WithLabelValues(observability.FrameMalformed).Inc()
		slog.Warn("skipping malformed stream frame",
			"error", err.Error(),
			"data", debug.Truncate(payload, 200),
		)
		return Frame{}, false
	}

	f, ok := classify(v, payload)
	if !ok {
		observability.FramesTotal.WithLabelValues(observability.FrameIgnored).Inc()
		debug.Log("frame", "ignoring unrecognized frame", "data", debug.Truncate(payload, 200))
		return Frame{}, false
	}
	if f.Kind == KindDone {
		d.done = true
	}
	observability.FramesTotal.WithLabelValues(f.Kind.String()).Inc()
	debug.Log("frame", "decoded frame", "kind", f.Kind.String())
	return f, true
}

// classify maps a decoded JSON value onto a frame kind.
func classify(v any, payload string) (Frame, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Frame{}, false
	}

	switch obj["type"] {
	case "connected":
		return Frame{Kind: KindAck, Raw: payload}, true
	case "done":
		return Frame{Kind: KindDone, Raw: payload}, true
	}

	if object, ok := obj["object"].(string); ok && strings.HasPrefix(object, "chat") {
		return Frame{Kind: KindChatData, ChatData: obj, Raw: payload}, true
	}

	if delta, ok := obj["delta"]; ok {
		return Frame{Kind: KindDelta, Delta: delta, Raw: payload}, true
	}

	return Frame{}, false
}
