package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
)

func TestInitWithWriter_DefaultsToInfoConsole(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	if Logger.GetLevel().String() != "info" {
		t.Fatalf("expected level=info, got %s", Logger.GetLevel())
	}
	if zlog.Logger.GetLevel() != Logger.GetLevel() {
		t.Fatalf("global logger not replaced")
	}

	Logger.Debug().Msg("hidden")
	Logger.Info().Msg("hello")
	out := strings.TrimSpace(buf.String())
	if strings.HasPrefix(out, "{") {
		t.Fatalf("expected console output, got %q", out)
	}
	if strings.Contains(out, "hidden") || !strings.Contains(out, "hello") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestInitWithWriter_InvalidLevelFallsBack(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	if Logger.GetLevel().String() != "info" {
		t.Fatalf("expected info fallback, got %s", Logger.GetLevel())
	}
}

func TestFromContext_AddsComponentAndRequestID(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	ctx := appCtx.WithRequestID(context.Background(), "req-42")
	l := FromContext(ctx, "reservation")
	l.Info().Msg("booked")

	out := buf.String()
	for _, want := range []string{`"component":"reservation"`, `"request_id":"req-42"`, `"service":"campus-coord"`, `"message":"booked"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}
}
