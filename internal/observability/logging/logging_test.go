package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewEmitsJSONByDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})
	logger.Info("chunk served", "bytes", 1024)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "chunk served" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	if entry["bytes"] != float64(1024) {
		t.Fatalf("bytes = %v", entry["bytes"])
	}
}

func TestNewTextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Writer: &buf, Format: "text"})
	logger.Info("gateway listening", "addr", ":8080")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Fatalf("expected text output, got JSON: %s", out)
	}
	if !strings.Contains(out, "gateway listening") {
		t.Fatalf("missing message: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level     string
		wantDebug bool
		wantWarn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"garbage", false, true},
	}
	for _, tc := range cases {
		t.Run("level "+tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Writer: &buf, Level: tc.level})
			logger.Debug("debug line")
			logger.Warn("warn line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tc.wantDebug {
				t.Fatalf("debug emitted = %v, want %v:\n%s", got, tc.wantDebug, out)
			}
			if got := strings.Contains(out, "warn line"); got != tc.wantWarn {
				t.Fatalf("warn emitted = %v, want %v:\n%s", got, tc.wantWarn, out)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := WithComponent(New(Config{Writer: &buf}), "stream")
	logger.Info("hello")

	if !strings.Contains(buf.String(), `"component":"stream"`) {
		t.Fatalf("missing component field: %s", buf.String())
	}

	if WithComponent(nil, "stream") != nil {
		t.Fatal("WithComponent(nil) must return nil")
	}
}

func TestContextRoundTrips(t *testing.T) {
	t.Parallel()

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithTrack(ctx, "track.mp3")

	if id, ok := RequestIDFromContext(ctx); !ok || id != "req-1" {
		t.Fatalf("RequestIDFromContext = %q, %v", id, ok)
	}
	if track, ok := TrackFromContext(ctx); !ok || track != "track.mp3" {
		t.Fatalf("TrackFromContext = %q, %v", track, ok)
	}

	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry a request ID")
	}
	if ctx := ContextWithRequestID(context.Background(), "   "); ctx != context.Background() {
		t.Fatal("blank request IDs must not be stored")
	}
}

func TestWithContextAnnotatesLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := New(Config{Writer: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-9")
	ctx = ContextWithTrack(ctx, "intro")
	WithContext(ctx, base).Info("chunk served")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-9"`) {
		t.Fatalf("missing request_id: %s", out)
	}
	if !strings.Contains(out, `"track":"intro"`) {
		t.Fatalf("missing track: %s", out)
	}

	if WithContext(ctx, nil) != nil {
		t.Fatal("WithContext(nil logger) must return nil")
	}
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	base := New(Config{Writer: &bytes.Buffer{}})
	ctx := ContextWithLogger(context.Background(), base)
	if LoggerFromContext(ctx) != base {
		t.Fatal("LoggerFromContext did not return the stored logger")
	}
	if LoggerFromContext(context.Background()) != nil {
		t.Fatal("empty context must not yield a logger")
	}
}
