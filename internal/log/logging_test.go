package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseLevel(tc.in), "level %q", tc.in)
	}
}

func TestSplitHandlerRoutesErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	opts := handlerOptions(LevelTrace)
	logger := slog.New(splitHandler{
		out: slog.NewTextHandler(&out, opts),
		err: slog.NewTextHandler(&errOut, opts),
	})

	logger.Info("report loop started")
	logger.Log(context.Background(), LevelTrace, "frame dump")
	logger.Error("endpoint write failed")

	assert.Contains(t, out.String(), "report loop started")
	assert.Contains(t, out.String(), "frame dump")
	assert.Contains(t, out.String(), "TRACE", "trace level gets a readable label")
	assert.NotContains(t, out.String(), "endpoint write failed")

	assert.Contains(t, errOut.String(), "endpoint write failed")
	assert.NotContains(t, errOut.String(), "report loop started")
}

func TestTeeHandlerDuplicates(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(teeHandler{
		slog.NewTextHandler(&a, handlerOptions(slog.LevelInfo)),
		slog.NewTextHandler(&b, handlerOptions(slog.LevelError)),
	})

	logger.Info("session bound")
	logger.Error("session failed")

	assert.Contains(t, a.String(), "session bound")
	assert.Contains(t, a.String(), "session failed")
	assert.NotContains(t, b.String(), "session bound", "per-handler level still applies")
	assert.Contains(t, b.String(), "session failed")
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffpad.log")
	logger, closers, err := SetupLogger("debug", path)
	require.NoError(t, err)

	logger.Info("gadget starting")
	for _, c := range closers {
		require.NoError(t, c.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gadget starting")
}
