// Command mock-backend runs the deterministic chat API from pkg/mockapi.
//
// Configuration:
//
//	MOCK_PORT      - Listen port (default: 9090)
//	MOCK_API_KEY   - Required bearer token (default: none)
//	MOCK_FRAMING   - "sse" (default) or "raw" for bare JSON lines
//	MOCK_MALFORMED - "true" injects an unparsable frame into each stream
//	MOCK_NO_DONE   - "true" ends streams without [DONE]
//	MOCK_DELAY     - Delay between frames (default: 0, e.g. "50ms")
//	MOCK_RPM       - Requests per minute per caller (default: 0, unlimited)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rhuss/vzero/pkg/mockapi"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mock backend failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	port := envOrDefault("MOCK_PORT", "9090")

	opts := mockapi.Options{
		APIKey:        os.Getenv("MOCK_API_KEY"),
		RawLines:      os.Getenv("MOCK_FRAMING") == "raw",
		MalformedLine: os.Getenv("MOCK_MALFORMED") == "true",
		OmitDone:      os.Getenv("MOCK_NO_DONE") == "true",
	}
	if v := os.Getenv("MOCK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MOCK_DELAY: %w", err)
		}
		opts.FrameDelay = d
	}

	if v := os.Getenv("MOCK_RPM"); v != "" {
		rpm, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MOCK_RPM: %w", err)
		}
		opts.RequestsPerMinute = rpm
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mockapi.New(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mock backend starting", "port", port, "raw_lines", opts.RawLines,
			"malformed", opts.MalformedLine, "omit_done", opts.OmitDone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("mock backend shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
