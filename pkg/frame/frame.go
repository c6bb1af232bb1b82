package frame

import (
	"github.com/rhuss/vzero/pkg/observability"
)

// Kind classifies a decoded frame.
type Kind int

const (
	// KindAck acknowledges the connection ({"type":"connected"}).
	KindAck Kind = iota

	// KindDone marks the end of the stream (data: [DONE] or {"type":"done"}).
	KindDone

	// KindChatData carries chat-level metadata such as title updates
	// ({"object":"chat.title", ...}). It never touches message content.
	KindChatData

	// KindDelta carries a structural delta for the message tree.
	KindDelta
)

// String returns the metrics label for the kind.
func (k Kind) String() string {
	switch k {
	case KindAck:
		return observability.FrameAck
	case KindDone:
		return observability.FrameDone
	case KindChatData:
		return observability.FrameChatData
	case KindDelta:
		return observability.FrameDelta
	default:
		return "unknown"
	}
}

// Frame is one classified unit decoded from the stream.
type Frame struct {
	Kind Kind

	// Delta is the decoded "delta" value of a KindDelta frame.
	Delta any

	// ChatData is the full decoded object of a KindChatData frame.
	ChatData map[string]any

	// Raw is the frame payload with any SSE prefix removed.
	Raw string
}
