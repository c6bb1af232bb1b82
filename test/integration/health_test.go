package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestHealthEndpointNoAuth(t *testing.T) {
	resp, err := http.Get(testEnv.HTTP.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 without auth, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("body = %q, want to contain 'ok'", body)
	}
}
