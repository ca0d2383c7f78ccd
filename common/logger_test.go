package common

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNopLoggerDisabled(t *testing.T) {
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if NopLogger().Enabled(context.Background(), level) {
			t.Errorf("NopLogger().Enabled(%v) = true, want false", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	defer SetLogger(orig)

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Logger().Info("shadow pass", "lights", 2)
	if !strings.Contains(buf.String(), "lights=2") {
		t.Errorf("log output = %q, want it to contain lights=2", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}
