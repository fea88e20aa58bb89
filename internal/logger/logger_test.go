package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestConsoleLoggerWritesBeforeInit(t *testing.T) {
	var buf bytes.Buffer
	l := newConsoleLogger(&buf)

	// Startup errors happen before Init runs; the default logger must have a
	// real writer so they are not swallowed.
	l.Error().Msg("failed to load configuration")
	if !strings.Contains(buf.String(), "failed to load configuration") {
		t.Fatalf("expected message in output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
