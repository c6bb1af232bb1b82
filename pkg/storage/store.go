package storage

import (
	"context"
	"time"

	"github.com/rhuss/vzero/pkg/tree"
)

// Message is an assistant message captured from a stream.
type Message struct {
	ID     string
	ChatID string

	// Title is the chat title announced during the stream, if any.
	Title string

	Content tree.Tree

	// Error is set when the stream failed; Content then holds whatever
	// arrived before the failure.
	Error string

	Complete  bool
	CreatedAt time.Time
}

// Order values for ListOptions.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListOptions selects a page of messages.
type ListOptions struct {
	// ChatID restricts the list to one chat when set.
	ChatID string

	// After is the ID of the last message of the previous page.
	After string

	// Limit is the page size: default 20, at most 100.
	Limit int

	// Order by creation time, OrderAsc (default) or OrderDesc.
	Order string
}

// PageLimit returns the effective page size.
func (o ListOptions) PageLimit() int {
	switch {
	case o.Limit <= 0:
		return 20
	case o.Limit > 100:
		return 100
	default:
		return o.Limit
	}
}

// MessageList is one page of messages.
type MessageList struct {
	Data    []*Message
	HasMore bool
	FirstID string
	LastID  string
}

// Store persists messages.
type Store interface {
	// SaveMessage stores a new message. Returns ErrConflict if the ID is
	// taken.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage returns a message by ID or ErrNotFound.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// ListMessages returns a page of messages in creation order.
	ListMessages(ctx context.Context, opts ListOptions) (*MessageList, error)

	// DeleteMessage removes a message. Returns ErrNotFound if absent.
	DeleteMessage(ctx context.Context, id string) error

	// HealthCheck verifies the store is usable.
	HealthCheck(ctx context.Context) error

	// Close releases resources.
	Close() error
}
