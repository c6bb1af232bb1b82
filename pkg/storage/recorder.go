package storage

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/vzero/pkg/api"
	"github.com/rhuss/vzero/pkg/debug"
	"github.com/rhuss/vzero/pkg/stream"
	"github.com/rhuss/vzero/pkg/tree"
)

// Recorder saves the outcome of one stream run. It is used once per run.
type Recorder struct {
	store Store

	mu      sync.Mutex
	chatID  string
	title   string
	last    tree.Tree
	saved   *Message
	saveErr error
}

// NewRecorder returns a Recorder that saves into store. chatID may be empty
// when the chat is created by the stream itself; the ID is then taken from
// the first chat metadata frame.
func NewRecorder(store Store, chatID string) *Recorder {
	return &Recorder{store: store, chatID: chatID}
}

// Callbacks wraps next so that the run is recorded. next is invoked after
// the recorder has seen each event. ctx bounds the save operation.
func (r *Recorder) Callbacks(ctx context.Context, next stream.Callbacks) stream.Callbacks {
	return stream.Callbacks{
		OnChunk: func(t tree.Tree) {
			r.mu.Lock()
			r.last = t
			r.mu.Unlock()
			if next.OnChunk != nil {
				next.OnChunk(t)
			}
		},
		OnChatData: func(m map[string]any) {
			r.observe(api.ParseChatMetadata(m))
			if next.OnChatData != nil {
				next.OnChatData(m)
			}
		},
		OnComplete: func(t tree.Tree) {
			r.save(ctx, t, "")
			if next.OnComplete != nil {
				next.OnComplete(t)
			}
		},
		OnError: func(msg string) {
			r.mu.Lock()
			last := r.last
			r.mu.Unlock()
			r.save(ctx, last, msg)
			if next.OnError != nil {
				next.OnError(msg)
			}
		},
	}
}

// Saved returns the stored message, or nil before the run ended.
func (r *Recorder) Saved() *Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved
}

// Err returns the error of the save operation, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveErr
}

// ChatID returns the chat the run belongs to, as far as known.
func (r *Recorder) ChatID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chatID
}

func (r *Recorder) observe(meta api.ChatMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meta.Object == api.ObjectChat && meta.ID != "" && r.chatID == "" {
		r.chatID = meta.ID
	}
	if strings.HasPrefix(meta.Object, api.ObjectChat) && meta.Title != "" {
		r.title = meta.Title
	}
}

func (r *Recorder) save(ctx context.Context, content tree.Tree, errMsg string) {
	r.mu.Lock()
	if r.saved != nil {
		r.mu.Unlock()
		return
	}
	if content == nil {
		content = tree.Tree{}
	}
	msg := &Message{
		ID:        api.NewMessageID(),
		ChatID:    r.chatID,
		Title:     r.title,
		Content:   content,
		Error:     errMsg,
		Complete:  errMsg == "",
		CreatedAt: time.Now().UTC(),
	}
	r.saved = msg
	r.mu.Unlock()

	err := r.store.SaveMessage(ctx, msg)
	if err != nil {
		slog.Warn("saving streamed message", "id", msg.ID, "chat_id", msg.ChatID, "error", err.Error())
	} else {
		debug.Log("storage", "saved streamed message", "id", msg.ID, "chat_id", msg.ChatID, "rows", content.Len())
	}

	r.mu.Lock()
	r.saveErr = err
	r.mu.Unlock()
}
