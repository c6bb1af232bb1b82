// Package integration runs the client pipeline end to end against the mock
// chat API, started in-process with net/http/httptest.
package integration

import (
	"context"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/vzero/pkg/client"
	"github.com/rhuss/vzero/pkg/mockapi"
	"github.com/rhuss/vzero/pkg/slot"
	"github.com/rhuss/vzero/pkg/storage"
	"github.com/rhuss/vzero/pkg/storage/memory"
	"github.com/rhuss/vzero/pkg/stream"
	"github.com/rhuss/vzero/pkg/tree"
)

const testAPIKey = "test-key"

// testEnv holds the shared mock API for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the mock API server.
type TestEnvironment struct {
	API  *mockapi.Server
	HTTP *httptest.Server
}

func TestMain(m *testing.M) {
	testEnv = newTestEnvironment(mockapi.Options{APIKey: testAPIKey, ChunkSize: 6})
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

func newTestEnvironment(opts mockapi.Options) *TestEnvironment {
	api := mockapi.New(opts)
	return &TestEnvironment{API: api, HTTP: httptest.NewServer(api)}
}

// Teardown stops the server.
func (env *TestEnvironment) Teardown() {
	env.HTTP.Close()
}

// Client returns a client for the environment.
func (env *TestEnvironment) Client(t *testing.T) *client.Client {
	t.Helper()
	c := client.New(client.Config{BaseURL: env.HTTP.URL, APIKey: testAPIKey, Timeout: 10 * time.Second})
	t.Cleanup(func() { c.Close() })
	return c
}

// startEnv starts a dedicated environment with opts for one test.
func startEnv(t *testing.T, opts mockapi.Options) *TestEnvironment {
	t.Helper()
	opts.APIKey = testAPIKey
	env := newTestEnvironment(opts)
	t.Cleanup(env.Teardown)
	return env
}

// pipeline is a slot wired to a recorder, as the CLI wires it.
type pipeline struct {
	slot     *slot.Slot
	store    *memory.Store
	recorder *storage.Recorder

	mu        sync.Mutex
	chunks    []tree.Tree
	chatData  []map[string]any
	completed tree.Tree
	errMsg    string
}

func newPipeline(chatID string) *pipeline {
	p := &pipeline{slot: slot.New(), store: memory.New(0)}
	p.recorder = storage.NewRecorder(p.store, chatID)
	p.slot.SetCallbacks(p.recorder.Callbacks(context.Background(), stream.Callbacks{
		OnChunk: func(t tree.Tree) {
			p.mu.Lock()
			p.chunks = append(p.chunks, t)
			p.mu.Unlock()
		},
		OnChatData: func(m map[string]any) {
			p.mu.Lock()
			p.chatData = append(p.chatData, m)
			p.mu.Unlock()
		},
		OnComplete: func(t tree.Tree) {
			p.mu.Lock()
			p.completed = t
			p.mu.Unlock()
		},
		OnError: func(msg string) {
			p.mu.Lock()
			p.errMsg = msg
			p.mu.Unlock()
		},
	}))
	return p
}

// run processes body and waits for the run to end.
func (p *pipeline) run(t *testing.T, ctx context.Context, body *stream.Body) *slot.View {
	t.Helper()
	done := p.slot.Sync(ctx, body)
	if done == nil {
		t.Fatal("Sync did not start a run")
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("stream did not finish")
	}
	return p.slot.Snapshot()
}
