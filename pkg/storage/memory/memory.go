// Package memory provides an in-memory storage.Store for tests and
// single-process use. Messages are lost when the process exits. An optional
// size limit evicts the least recently used message.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/rhuss/vzero/pkg/storage"
)

type entry struct {
	msg  *storage.Message
	elem *list.Element
}

// Store is an in-memory message store with optional LRU eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recently used
	maxSize int        // 0 = unlimited
}

var _ storage.Store = (*Store)(nil)

// New creates an in-memory store. A maxSize of 0 disables eviction.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// SaveMessage stores msg.
func (s *Store) SaveMessage(_ context.Context, msg *storage.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[msg.ID]; exists {
		return storage.ErrConflict
	}
	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	s.entries[msg.ID] = &entry{msg: msg, elem: s.lru.PushFront(msg.ID)}
	return nil
}

// GetMessage returns a message and marks it as recently used.
func (s *Store) GetMessage(_ context.Context, id string) (*storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	s.lru.MoveToFront(e.elem)
	return e.msg, nil
}

// DeleteMessage removes a message.
func (s *Store) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.lru.Remove(e.elem)
	delete(s.entries, id)
	return nil
}

// ListMessages returns a page of messages sorted by creation time.
func (s *Store) ListMessages(_ context.Context, opts storage.ListOptions) (*storage.MessageList, error) {
	s.mu.Lock()
	var matches []*storage.Message
	for _, e := range s.entries {
		if opts.ChatID != "" && e.msg.ChatID != opts.ChatID {
			continue
		}
		matches = append(matches, e.msg)
	}
	s.mu.Unlock()

	desc := opts.Order == storage.OrderDesc
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})

	if opts.After != "" {
		idx := -1
		for i, m := range matches {
			if m.ID == opts.After {
				idx = i
				break
			}
		}
		if idx >= 0 {
			matches = matches[idx+1:]
		} else {
			matches = nil
		}
	}

	limit := opts.PageLimit()
	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}

	result := &storage.MessageList{Data: matches, HasMore: hasMore}
	if len(matches) > 0 {
		result.FirstID = matches[0].ID
		result.LastID = matches[len(matches)-1].ID
	}
	if result.Data == nil {
		result.Data = []*storage.Message{}
	}
	return result, nil
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently used entry. Must be called with
// s.mu held.
func (s *Store) evictOldest() {
	back := s.lru.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	s.lru.Remove(back)
	delete(s.entries, id)
}
