package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/vzero/pkg/api"
	"github.com/rhuss/vzero/pkg/tree"
)

// SessionTokenHeader carries the session token in both directions.
const SessionTokenHeader = "X-Session-Token"

// Options configure a Server. The zero value is a well-behaved SSE server.
type Options struct {
	// APIKey, when set, is required as a bearer token.
	APIKey string

	// RequestsPerMinute limits requests per caller. Zero disables limiting.
	RequestsPerMinute int

	// Reply builds the assistant tree. Defaults to EchoReply.
	Reply Reply

	// ChunkSize is the maximum number of runes per append delta.
	ChunkSize int

	// FrameDelay is slept between frames.
	FrameDelay time.Duration

	// RawLines writes bare JSON lines instead of SSE "data:" lines.
	RawLines bool

	// MalformedLine injects an unparsable frame after the chat metadata.
	MalformedLine bool

	// OmitDone ends the stream at EOF without the [DONE] marker.
	OmitDone bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is an in-memory chat API. It implements http.Handler.
type Server struct {
	opts    Options
	handler http.Handler
	auth    keyAuth
	limiter *limiter

	mu    sync.Mutex
	chats map[string]*api.Chat
}

// New returns a Server.
func New(opts Options) *Server {
	if opts.Reply == nil {
		opts.Reply = EchoReply
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:    opts,
		auth:    newKeyAuth(opts.APIKey),
		limiter: newLimiter(opts.RequestsPerMinute, opts.Now),
		chats:   make(map[string]*api.Chat),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chats", s.handleCreateChat)
	mux.HandleFunc("GET /v1/chats/{id}", s.handleGetChat)
	mux.HandleFunc("POST /v1/chats/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	s.handler = chain(
		requestID(),
		recovery(opts.Logger),
		logging(opts.Logger),
		s.guard,
	)(mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(SessionTokenHeader)
	if token == "" {
		token = uuid.NewString()
	}
	w.Header().Set(SessionTokenHeader, token)
	s.handler.ServeHTTP(w, r)
}

// Chat returns a copy of a stored chat.
func (s *Server) Chat(id string) (api.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return api.Chat{}, false
	}
	out := *c
	out.Messages = append([]api.Message(nil), c.Messages...)
	return out, true
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req api.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("", "invalid JSON body: "+err.Error()))
		return
	}
	if apiErr := req.Validate(); apiErr != nil {
		writeError(w, apiErr)
		return
	}

	id := api.NewChatID()
	chat := &api.Chat{
		ID:        id,
		Object:    api.ObjectChat,
		Name:      titleFor(req.Message),
		ProjectID: req.ProjectID,
		WebURL:    "https://v0.dev/chat/" + id,
		CreatedAt: s.opts.Now().UTC(),
	}

	s.mu.Lock()
	s.chats[chat.ID] = chat
	s.mu.Unlock()

	s.respond(w, r, chat.ID, req.Message, req.ResponseMode, true)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chat, ok := s.Chat(r.PathValue("id"))
	if !ok {
		writeError(w, api.NewNotFoundError("chat not found"))
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Chat(id); !ok {
		writeError(w, api.NewNotFoundError("chat not found"))
		return
	}

	var req api.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("", "invalid JSON body: "+err.Error()))
		return
	}
	if apiErr := req.Validate(); apiErr != nil {
		writeError(w, apiErr)
		return
	}

	s.respond(w, r, id, req.Message, req.ResponseMode, false)
}

// respond records the exchange and answers in the requested mode.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, chatID, message string, mode api.ResponseMode, created bool) {
	reply := s.opts.Reply(message)
	replyJSON, err := json.Marshal(reply)
	if err != nil {
		writeError(w, api.NewServerError("encoding reply: "+err.Error()))
		return
	}

	now := s.opts.Now().UTC()
	user := api.Message{
		ID: api.NewMessageID(), Object: api.ObjectMessage, ChatID: chatID,
		Role: api.RoleUser, Content: message, CreatedAt: now,
	}
	assistant := api.Message{
		ID: api.NewMessageID(), Object: api.ObjectMessage, ChatID: chatID,
		Role: api.RoleAssistant, Content: plainText(reply), CreatedAt: now, Tree: replyJSON,
	}

	s.mu.Lock()
	chat := s.chats[chatID]
	chat.Messages = append(chat.Messages, user, assistant)
	if chat.Title == "" {
		chat.Title = titleFor(message)
	}
	chat.UpdatedAt = now
	snapshot := *chat
	snapshot.Messages = append([]api.Message(nil), chat.Messages...)
	s.mu.Unlock()

	switch mode {
	case api.ResponseModeStream:
		s.stream(w, r, &snapshot, reply, created)
	case api.ResponseModeAsync:
		writeJSON(w, http.StatusAccepted, snapshot)
	default:
		writeJSON(w, http.StatusOK, snapshot)
	}
}

// stream writes the frame sequence for one assistant reply.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, chat *api.Chat, reply tree.Tree, created bool) {
	fw := newFrameWriter(w, s.opts.RawLines)
	ctx := r.Context()

	frames := []any{map[string]any{"type": "connected"}}
	if created {
		frames = append(frames, map[string]any{
			"object": api.ObjectChat, "id": chat.ID, "name": chat.Name, "webUrl": chat.WebURL,
		})
	}
	frames = append(frames, map[string]any{"object": api.ObjectChatTitle, "title": chat.Title})

	write := func(v any) bool {
		if ctx.Err() != nil {
			return false
		}
		if s.opts.FrameDelay > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(s.opts.FrameDelay):
			}
		}
		var err error
		if line, ok := v.(string); ok {
			err = fw.writeLine(line)
		} else {
			err = fw.writeJSON(v)
		}
		if err != nil {
			slog.Debug("mock stream write failed", "chat_id", chat.ID, "error", err)
			return false
		}
		return true
	}

	for _, f := range frames {
		if !write(f) {
			return
		}
	}
	if s.opts.MalformedLine {
		if !write(`{"delta": [broken`) {
			return
		}
	}
	for _, d := range Script(reply, s.opts.ChunkSize) {
		if !write(map[string]any{"delta": d}) {
			return
		}
	}
	if s.opts.OmitDone {
		return
	}
	if err := fw.writeDone(); err != nil {
		slog.Debug("mock stream write failed", "chat_id", chat.ID, "error", err)
	}
}

func titleFor(message string) string {
	words := strings.Fields(message)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}

// plainText concatenates the text of all block rows.
func plainText(t tree.Tree) string {
	var parts []string
	for _, row := range t.Rows() {
		els, ok := row.Elements()
		if !ok {
			continue
		}
		n := &tree.Node{Children: els}
		if s := n.Text(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, apiErr *api.APIError) {
	writeJSON(w, apiErr.HTTPStatus(), api.ErrorResponse{Error: apiErr})
}
