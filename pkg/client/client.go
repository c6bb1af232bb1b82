package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/vzero/pkg/api"
	"github.com/rhuss/vzero/pkg/debug"
	"github.com/rhuss/vzero/pkg/observability"
	"github.com/rhuss/vzero/pkg/stream"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.v0.dev"

	// SessionTokenHeader carries the session token in both directions.
	SessionTokenHeader = "X-Session-Token"

	defaultTimeout = 120 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout bounds non-streaming requests. Zero means two minutes.
	Timeout time.Duration

	// Transport overrides the HTTP transport. It is wrapped with metrics
	// instrumentation either way.
	Transport http.RoundTripper
}

// Client talks to the chat API. It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string

	mu           sync.Mutex
	sessionToken string
}

// New creates a Client.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := observability.InstrumentTransport(cfg.Transport)
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		// A stream can legitimately outlive any fixed timeout; the context
		// controls its lifetime.
		streamClient: &http.Client{
			Transport: transport,
		},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
	}
}

// SessionToken returns the most recent session token received, if any.
func (c *Client) SessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

// CreateChat starts a chat. For the stream response mode use StreamChat.
func (c *Client) CreateChat(ctx context.Context, req *api.CreateChatRequest) (*api.Chat, error) {
	if apiErr := req.Validate(); apiErr != nil {
		return nil, apiErr
	}
	if req.ResponseMode == api.ResponseModeStream {
		return nil, api.NewInvalidRequestError("responseMode", "use StreamChat for streamed responses")
	}

	var chat api.Chat
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chats", req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChat fetches a chat with its messages.
func (c *Client) GetChat(ctx context.Context, chatID string) (*api.Chat, error) {
	var chat api.Chat
	if err := c.doJSON(ctx, http.MethodGet, "/v1/chats/"+url.PathEscape(chatID), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// SendMessage adds a message to a chat. For the stream response mode use
// StreamMessage.
func (c *Client) SendMessage(ctx context.Context, chatID string, req *api.SendMessageRequest) (*api.Chat, error) {
	if apiErr := req.Validate(); apiErr != nil {
		return nil, apiErr
	}
	if req.ResponseMode == api.ResponseModeStream {
		return nil, api.NewInvalidRequestError("responseMode", "use StreamMessage for streamed responses")
	}

	var chat api.Chat
	if err := c.doJSON(ctx, http.MethodPost, messagesPath(chatID), req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// StreamChat starts a chat and returns the response stream.
func (c *Client) StreamChat(ctx context.Context, req *api.CreateChatRequest) (*stream.Body, error) {
	r := *req
	r.ResponseMode = api.ResponseModeStream
	if apiErr := r.Validate(); apiErr != nil {
		return nil, apiErr
	}
	return c.openStream(ctx, "/v1/chats", &r)
}

// StreamMessage sends a message to a chat and returns the response stream.
func (c *Client) StreamMessage(ctx context.Context, chatID string, req *api.SendMessageRequest) (*stream.Body, error) {
	r := *req
	r.ResponseMode = api.ResponseModeStream
	if apiErr := r.Validate(); apiErr != nil {
		return nil, apiErr
	}
	return c.openStream(ctx, messagesPath(chatID), &r)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func messagesPath(chatID string) string {
	return "/v1/chats/" + url.PathEscape(chatID) + "/messages"
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	httpReq, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return MapNetworkError(err)
	}
	defer httpResp.Body.Close()
	c.captureSession(httpResp)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return MapHTTPError(httpResp)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return api.NewServerError(fmt.Sprintf("failed to parse API response: %s", err.Error()))
	}
	return nil
}

func (c *Client) openStream(ctx context.Context, path string, in any) (*stream.Body, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, path, in)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	c.captureSession(httpResp)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}

	debug.Log("client", "stream opened", "path", path, "content_type", httpResp.Header.Get("Content-Type"))
	return stream.NewBody(httpResp.Body), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if token := c.SessionToken(); token != "" {
		httpReq.Header.Set(SessionTokenHeader, token)
	}

	debug.Log("client", "request", "method", method, "path", path)
	return httpReq, nil
}

func (c *Client) captureSession(resp *http.Response) {
	token := resp.Header.Get(SessionTokenHeader)
	if token == "" {
		return
	}
	c.mu.Lock()
	c.sessionToken = token
	c.mu.Unlock()
}
