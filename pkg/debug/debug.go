// Package debug provides category-based debug logging for vzero.
//
// Categories select WHAT to debug (VZERO_DEBUG env or logging.debug in the
// config file); levels select HOW MUCH detail (VZERO_LOG_LEVEL env or
// logging.level).
//
// Usage:
//
//	debug.Log("frame", "decoded", "kind", f.Kind)
//	if debug.Enabled("patch") { /* expensive formatting */ }
//
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// LevelTrace is below slog.LevelDebug. At TRACE, raw stream lines are
// echoed through Raw.
const LevelTrace = slog.LevelDebug - 4

// Known lists the categories the packages of this module log under.
// "all" enables every category.
var Known = []string{"client", "config", "frame", "patch", "render", "storage", "stream"}

// Options configures the debug system.
type Options struct {
	// Categories is a comma-separated category list.
	Categories string
	// Level is one of the level names accepted by ParseLevel.
	Level string
	// Output receives log records and Raw text. Defaults to os.Stderr.
	Output io.Writer
}

type settings struct {
	categories map[string]bool
	out        io.Writer
}

// current is swapped atomically because stream goroutines log while tests
// and the CLI reconfigure.
var current atomic.Pointer[settings]

func init() {
	current.Store(&settings{
		categories: parseCategories(os.Getenv("VZERO_DEBUG")),
		out:        os.Stderr,
	})
}

// Init configures the debug system from config values, writing to stderr.
// VZERO_DEBUG and VZERO_LOG_LEVEL take precedence over the arguments.
func Init(configCategories string, configLevel string) {
	Configure(Options{Categories: configCategories, Level: configLevel})
}

// Configure installs opts as the active debug settings and replaces the
// default slog logger. It returns the category names that are not in Known.
func Configure(opts Options) (unknown []string) {
	cats := cmp.Or(os.Getenv("VZERO_DEBUG"), opts.Categories)
	level := cmp.Or(os.Getenv("VZERO_LOG_LEVEL"), opts.Level, "INFO")
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	s := &settings{categories: parseCategories(cats), out: out}
	current.Store(s)

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))

	for cat := range s.categories {
		if cat != "all" && !slices.Contains(Known, cat) {
			unknown = append(unknown, cat)
		}
	}
	slices.Sort(unknown)
	if len(unknown) > 0 {
		slog.Warn("unknown debug categories", "categories", strings.Join(unknown, ","))
	}
	return unknown
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	cats := current.Load().categories
	return cats["all"] || cats[category]
}

// Log emits a debug message for the given category.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE level is active for the given category.
func TraceIsEnabled(category string) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw writes text unformatted to the configured output, prefixed with the
// category. Only emitted when the category is enabled at TRACE level.
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintf(current.Load().out, "[%s] %s\n", category, text)
}

// ParseLevel converts a level string to a slog.Level. Unrecognized names
// map to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	cats := current.Load().categories
	result := make([]string, 0, len(cats))
	for k := range cats {
		result = append(result, k)
	}
	slices.Sort(result)
	return result
}

// Truncate shortens s to at most maxLen bytes without splitting a UTF-8
// sequence, appending "..." when anything was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
