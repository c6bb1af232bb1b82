package api

import (
	"encoding/json"
	"strings"
	"time"
)

// ResponseMode selects how the server answers a message request.
type ResponseMode string

const (
	// ResponseModeSync blocks until the assistant message is complete.
	ResponseModeSync ResponseMode = "sync"

	// ResponseModeAsync returns immediately; the message is fetched later.
	ResponseModeAsync ResponseMode = "async"

	// ResponseModeStream answers with a frame stream of tree deltas.
	ResponseModeStream ResponseMode = "experimental_stream"
)

// Valid reports whether m is a known mode. The empty mode means sync.
func (m ResponseMode) Valid() bool {
	switch m {
	case "", ResponseModeSync, ResponseModeAsync, ResponseModeStream:
		return true
	}
	return false
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Object names used in the "object" field of API payloads and metadata
// frames.
const (
	ObjectChat      = "chat"
	ObjectChatTitle = "chat.title"
	ObjectMessage   = "message"
)

// Chat is a conversation.
type Chat struct {
	ID        string    `json:"id"`
	Object    string    `json:"object"`
	Name      string    `json:"name,omitempty"`
	Title     string    `json:"title,omitempty"`
	WebURL    string    `json:"webUrl,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Messages  []Message `json:"messages,omitempty"`
}

// Message is one turn of a chat.
type Message struct {
	ID        string    `json:"id"`
	Object    string    `json:"object"`
	ChatID    string    `json:"chatId,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`

	// Tree is the structured content of assistant messages.
	Tree json.RawMessage `json:"experimental_content,omitempty"`
}

// Project groups chats.
type Project struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Name   string `json:"name"`
}

// CreateChatRequest starts a chat with its first message.
type CreateChatRequest struct {
	Message      string       `json:"message"`
	System       string       `json:"system,omitempty"`
	ProjectID    string       `json:"projectId,omitempty"`
	ResponseMode ResponseMode `json:"responseMode,omitempty"`
}

// Validate checks the request. It returns nil if the request is valid.
func (r *CreateChatRequest) Validate() *APIError {
	if strings.TrimSpace(r.Message) == "" {
		return NewInvalidRequestError("message", "message is required")
	}
	if !r.ResponseMode.Valid() {
		return NewInvalidRequestError("responseMode", "responseMode must be 'sync', 'async' or 'experimental_stream'")
	}
	return nil
}

// SendMessageRequest adds a message to an existing chat.
type SendMessageRequest struct {
	Message      string       `json:"message"`
	ResponseMode ResponseMode `json:"responseMode,omitempty"`
}

// Validate checks the request. It returns nil if the request is valid.
func (r *SendMessageRequest) Validate() *APIError {
	if strings.TrimSpace(r.Message) == "" {
		return NewInvalidRequestError("message", "message is required")
	}
	if !r.ResponseMode.Valid() {
		return NewInvalidRequestError("responseMode", "responseMode must be 'sync', 'async' or 'experimental_stream'")
	}
	return nil
}

// ChatMetadata is the decoded form of an out-of-band chat frame.
type ChatMetadata struct {
	Object string `json:"object"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Title  string `json:"title,omitempty"`
	WebURL string `json:"webUrl,omitempty"`
}

// ParseChatMetadata converts a decoded metadata frame. Unknown fields are
// dropped.
func ParseChatMetadata(m map[string]any) ChatMetadata {
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return ChatMetadata{
		Object: str("object"),
		ID:     str("id"),
		Name:   str("name"),
		Title:  str("title"),
		WebURL: str("webUrl"),
	}
}
