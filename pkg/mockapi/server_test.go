package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/vzero/pkg/api"
	"github.com/rhuss/vzero/pkg/frame"
)

func post(t *testing.T, srv *httptest.Server, path string, body any, header http.Header) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeFrames(t *testing.T, r io.Reader) []frame.Frame {
	t.Helper()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	d := frame.NewDecoder()
	frames := d.Feed(data)
	return append(frames, d.Flush()...)
}

func kinds(frames []frame.Frame) string {
	var out []string
	for _, f := range frames {
		out = append(out, f.Kind.String())
	}
	return strings.Join(out, ",")
}

func TestServer_CreateChatSync(t *testing.T) {
	srv := httptest.NewServer(New(Options{}))
	defer srv.Close()

	resp := post(t, srv, "/v1/chats", api.CreateChatRequest{Message: "hello there"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(SessionTokenHeader) == "" {
		t.Error("missing session token")
	}

	var chat api.Chat
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		t.Fatal(err)
	}
	if !api.ValidateChatID(chat.ID) {
		t.Errorf("chat ID = %q", chat.ID)
	}
	if chat.Title != "hello there" {
		t.Errorf("Title = %q", chat.Title)
	}
	if len(chat.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(chat.Messages))
	}
	if got := chat.Messages[1]; got.Role != api.RoleAssistant || got.Content != "You said: hello there" || len(got.Tree) == 0 {
		t.Errorf("assistant message = %+v", got)
	}

	get, err := http.Get(srv.URL + "/v1/chats/" + chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Errorf("GET status = %d", get.StatusCode)
	}
}

func TestServer_SessionTokenEchoed(t *testing.T) {
	srv := httptest.NewServer(New(Options{}))
	defer srv.Close()

	h := http.Header{}
	h.Set(SessionTokenHeader, "tok-1")
	resp := post(t, srv, "/v1/chats", api.CreateChatRequest{Message: "hi"}, h)
	if got := resp.Header.Get(SessionTokenHeader); got != "tok-1" {
		t.Errorf("session token = %q, want tok-1", got)
	}
}

func TestServer_Errors(t *testing.T) {
	srv := httptest.NewServer(New(Options{APIKey: "secret"}))
	defer srv.Close()

	auth := http.Header{}
	auth.Set("Authorization", "Bearer secret")

	tests := []struct {
		name   string
		path   string
		body   any
		header http.Header
		status int
	}{
		{"missing key", "/v1/chats", api.CreateChatRequest{Message: "hi"}, nil, http.StatusUnauthorized},
		{"empty message", "/v1/chats", api.CreateChatRequest{}, auth, http.StatusBadRequest},
		{"bad mode", "/v1/chats", api.CreateChatRequest{Message: "hi", ResponseMode: "nope"}, auth, http.StatusBadRequest},
		{"unknown chat", "/v1/chats/chat_missing/messages", api.SendMessageRequest{Message: "hi"}, auth, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, tt.path, tt.body, tt.header)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var er api.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == nil {
				t.Errorf("error body not decodable: %v", err)
			}
		})
	}

	health, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("healthz without key = %d", health.StatusCode)
	}
}

func TestServer_Stream(t *testing.T) {
	srv := httptest.NewServer(New(Options{ChunkSize: 8}))
	defer srv.Close()

	resp := post(t, srv, "/v1/chats", api.CreateChatRequest{Message: "hello", ResponseMode: api.ResponseModeStream}, nil)
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	frames := decodeFrames(t, resp.Body)

	// connected, chat, chat.title, skeleton, 2 appends ("You said", ": hello"), done
	want := "ack,chat_data,chat_data,delta,delta,delta,done"
	if got := kinds(frames); got != want {
		t.Errorf("frame kinds = %s, want %s", got, want)
	}
	if id, _ := frames[1].ChatData["id"].(string); !api.ValidateChatID(id) {
		t.Errorf("chat frame id = %q", id)
	}
}

func TestServer_StreamFollowUpOmitsChatFrame(t *testing.T) {
	s := New(Options{ChunkSize: 100})
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp := post(t, srv, "/v1/chats", api.CreateChatRequest{Message: "first"}, nil)
	var chat api.Chat
	json.NewDecoder(resp.Body).Decode(&chat)

	resp = post(t, srv, "/v1/chats/"+chat.ID+"/messages",
		api.SendMessageRequest{Message: "second", ResponseMode: api.ResponseModeStream}, nil)
	frames := decodeFrames(t, resp.Body)
	if got, want := kinds(frames), "ack,chat_data,delta,delta,done"; got != want {
		t.Errorf("frame kinds = %s, want %s", got, want)
	}

	stored, ok := s.Chat(chat.ID)
	if !ok || len(stored.Messages) != 4 {
		t.Errorf("stored chat messages = %d", len(stored.Messages))
	}
}

func TestServer_DegradedFraming(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"raw lines", Options{RawLines: true, ChunkSize: 100}, "ack,chat_data,chat_data,delta,delta"},
		{"malformed line", Options{MalformedLine: true, ChunkSize: 100}, "ack,chat_data,chat_data,delta,delta,done"},
		{"no done", Options{OmitDone: true, ChunkSize: 100}, "ack,chat_data,chat_data,delta,delta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(New(tt.opts))
			defer srv.Close()

			resp := post(t, srv, "/v1/chats", api.CreateChatRequest{Message: "x", ResponseMode: api.ResponseModeStream}, nil)
			if got := kinds(decodeFrames(t, resp.Body)); got != tt.want {
				t.Errorf("frame kinds = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	got := plainText(EchoReply("show code"))
	if got != "You said: show code" {
		t.Errorf("plainText = %q", got)
	}
}
