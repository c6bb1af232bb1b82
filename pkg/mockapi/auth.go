package mockapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/vzero/pkg/api"
)

// bypassPaths skip authentication and rate limiting.
var bypassPaths = map[string]bool{"/healthz": true}

// keyAuth validates bearer tokens against a single key. The key is kept
// only as its SHA-256 hash.
type keyAuth struct {
	hash    [32]byte
	enabled bool
}

func newKeyAuth(key string) keyAuth {
	if key == "" {
		return keyAuth{}
	}
	return keyAuth{hash: sha256.Sum256([]byte(key)), enabled: true}
}

// subject returns the caller identity for r, or an error when the
// credentials are missing or wrong.
func (a keyAuth) subject(r *http.Request) (string, *api.APIError) {
	if !a.enabled {
		return "anonymous", nil
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", api.NewUnauthorizedError("authentication required")
	}
	h := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(h[:], a.hash[:]) != 1 {
		return "", api.NewUnauthorizedError("invalid API key")
	}
	return "key:" + hex.EncodeToString(h[:4]), nil
}

// limiter allows rpm requests per subject in fixed one-minute windows.
type limiter struct {
	rpm int
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count int
	start time.Time
}

func newLimiter(rpm int, now func() time.Time) *limiter {
	return &limiter{rpm: rpm, now: now, windows: make(map[string]*window)}
}

func (l *limiter) allow(subject string) bool {
	if l == nil || l.rpm <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[subject]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.windows[subject] = &window{count: 1, start: now}
		return true
	}
	w.count++
	return w.count <= l.rpm
}

// guard authenticates and rate limits requests before next.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bypassPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		subject, apiErr := s.auth.subject(r)
		if apiErr != nil {
			slog.Warn("authentication failed", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			writeError(w, apiErr)
			return
		}
		if !s.limiter.allow(subject) {
			slog.Warn("rate limit exceeded", "subject", subject, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, api.NewTooManyRequestsError("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
