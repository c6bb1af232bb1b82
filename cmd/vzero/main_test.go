package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rhuss/vzero/pkg/mockapi"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"VZERO_CONFIG", "VZERO_API_KEY", "V0_API_KEY", "VZERO_BASE_URL",
		"VZERO_STORAGE", "VZERO_STORAGE_SIZE", "VZERO_POSTGRES_DSN", "VZERO_METRICS_ADDR",
		"VZERO_DEBUG", "VZERO_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeBoth(t, args...)
	return out, err
}

// executeBoth runs the root command and returns stdout and stderr.
func executeBoth(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestReplay(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "capture.txt")
	capture := "data: {\"type\":\"connected\"}\n" +
		"data: {\"delta\":{\"_t\":\"a\",\"0\":[[0,[[\"p\",{},\"Hel\"]]]]}}\n" +
		"data: {\"delta\":[[0,1,0,2,\"lo\"],9,9]}\n" +
		"data: [DONE]\n"
	if err := os.WriteFile(path, []byte(capture), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "replay", "--plain", path)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if out != "Hello\n" {
		t.Errorf("output = %q, want %q", out, "Hello\n")
	}
}

func TestReplay_MissingFile(t *testing.T) {
	isolate(t)

	if _, err := execute(t, "replay", filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing capture")
	}
}

func TestChat_AgainstMockAPI(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(mockapi.New(mockapi.Options{APIKey: "k", ChunkSize: 4}))
	defer srv.Close()
	t.Setenv("VZERO_BASE_URL", srv.URL)
	t.Setenv("VZERO_API_KEY", "k")

	out, err := execute(t, "chat", "--plain", "hello", "world")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "You said: hello world\n" {
		t.Errorf("output = %q", out)
	}
}

func TestChat_ReportsSavedMessageOnStderr(t *testing.T) {
	tests := []struct {
		name      string
		storage   string
		wantSaved bool
	}{
		{"memory storage", "memory", true},
		{"storage disabled", "none", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			srv := httptest.NewServer(mockapi.New(mockapi.Options{}))
			defer srv.Close()
			t.Setenv("VZERO_BASE_URL", srv.URL)
			t.Setenv("VZERO_API_KEY", "k")
			t.Setenv("VZERO_STORAGE", tt.storage)

			out, errOut, err := executeBoth(t, "chat", "--plain", "hi")
			if err != nil {
				t.Fatalf("chat: %v", err)
			}
			if strings.Contains(out, "saved") {
				t.Errorf("save notice leaked into stdout: %q", out)
			}
			if got := strings.Contains(errOut, "saved msg_"); got != tt.wantSaved {
				t.Errorf("stderr = %q, want save notice %v", errOut, tt.wantSaved)
			}
		})
	}
}

func TestChat_StreamWithoutDoneStillCompletes(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(mockapi.New(mockapi.Options{OmitDone: true}))
	defer srv.Close()
	t.Setenv("VZERO_BASE_URL", srv.URL)
	t.Setenv("VZERO_API_KEY", "k")

	out, err := execute(t, "chat", "--plain", "hi")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.HasPrefix(out, "You said: hi") {
		t.Errorf("output = %q", out)
	}
}

func TestChat_RequiresAPIKey(t *testing.T) {
	isolate(t)

	_, err := execute(t, "chat", "hi")
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Errorf("err = %v, want api_key error", err)
	}
}

func TestHistory_StorageDisabled(t *testing.T) {
	isolate(t)
	t.Setenv("VZERO_STORAGE", "none")

	if _, err := execute(t, "history"); err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Errorf("err = %v, want storage disabled", err)
	}
}
