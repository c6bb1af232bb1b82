package debug

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// withSettings installs categories for the duration of a test.
func withSettings(t *testing.T, cats string) {
	t.Helper()
	orig := current.Load()
	current.Store(&settings{categories: parseCategories(cats), out: orig.out})
	t.Cleanup(func() { current.Store(orig) })
}

// configure runs Configure against a buffer and restores global state.
func configure(t *testing.T, opts Options) (*bytes.Buffer, []string) {
	t.Helper()
	orig := current.Load()
	origLogger := slog.Default()
	t.Cleanup(func() {
		current.Store(orig)
		slog.SetDefault(origLogger)
	})

	var buf bytes.Buffer
	opts.Output = &buf
	unknown := Configure(opts)
	return &buf, unknown
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "stream", map[string]bool{"stream": true}},
		{"multiple", "stream,patch", map[string]bool{"stream": true, "patch": true}},
		{"with spaces", " stream , patch ", map[string]bool{"stream": true, "patch": true}},
		{"uppercase normalized", "STREAM,Patch", map[string]bool{"stream": true, "patch": true}},
		{"empty segments", "stream,,patch", map[string]bool{"stream": true, "patch": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseCategories(tt.input)); diff != "" {
				t.Errorf("parseCategories(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		cats     string
		category string
		want     bool
	}{
		{"stream,patch", "stream", true},
		{"stream,patch", "patch", true},
		{"stream,patch", "storage", false},
		{"stream,patch", "all", false},
		{"all", "frame", true},
		{"all", "anything", true},
		{"", "stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.cats+"/"+tt.category, func(t *testing.T) {
			withSettings(t, tt.cats)
			if got := Enabled(tt.category); got != tt.want {
				t.Errorf("Enabled(%q) with %q = %v, want %v", tt.category, tt.cats, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is a ..."},
		{"héllo", 2, "h..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestConfigure_RoutesOutput(t *testing.T) {
	t.Setenv("VZERO_DEBUG", "")
	t.Setenv("VZERO_LOG_LEVEL", "")

	buf, unknown := configure(t, Options{Categories: "frame", Level: "DEBUG"})
	if len(unknown) != 0 {
		t.Errorf("unexpected unknown categories: %v", unknown)
	}

	Log("frame", "decoded line", "kind", "delta")
	Log("patch", "should be filtered")

	out := buf.String()
	if !strings.Contains(out, "decoded line") || !strings.Contains(out, "debug=frame") {
		t.Errorf("expected frame debug output, got %q", out)
	}
	if strings.Contains(out, "should be filtered") {
		t.Errorf("disabled category leaked into output: %q", out)
	}
}

func TestConfigure_EnvOverridesConfig(t *testing.T) {
	t.Setenv("VZERO_DEBUG", "stream")
	t.Setenv("VZERO_LOG_LEVEL", "trace")

	configure(t, Options{Categories: "patch", Level: "INFO"})

	if !Enabled("stream") || Enabled("patch") {
		t.Errorf("categories = %v, want only stream", Categories())
	}
	if !TraceIsEnabled("stream") {
		t.Error("trace should be enabled from VZERO_LOG_LEVEL")
	}
}

func TestConfigure_ReportsUnknownCategories(t *testing.T) {
	t.Setenv("VZERO_DEBUG", "")
	t.Setenv("VZERO_LOG_LEVEL", "")

	buf, unknown := configure(t, Options{Categories: "stream,providers,all,bogus"})

	if diff := cmp.Diff([]string{"bogus", "providers"}, unknown); diff != "" {
		t.Errorf("unknown mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "unknown debug categories") {
		t.Errorf("expected warning, got %q", buf.String())
	}
}

func TestRaw(t *testing.T) {
	t.Setenv("VZERO_DEBUG", "")
	t.Setenv("VZERO_LOG_LEVEL", "")

	buf, _ := configure(t, Options{Categories: "frame", Level: "TRACE"})
	Raw("frame", `data: {"delta":[]}`)
	Raw("stream", "filtered")

	if got := buf.String(); got != "[frame] data: {\"delta\":[]}\n" {
		t.Errorf("Raw output = %q", got)
	}

	quiet, _ := configure(t, Options{Categories: "frame", Level: "DEBUG"})
	Raw("frame", "below trace")
	if quiet.Len() != 0 {
		t.Errorf("Raw should be silent below TRACE, got %q", quiet.String())
	}
}

func TestCategories_Sorted(t *testing.T) {
	withSettings(t, "stream,client,patch")
	if diff := cmp.Diff([]string{"client", "patch", "stream"}, Categories()); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
}
