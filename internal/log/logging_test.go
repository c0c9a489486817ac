package log_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plog "github.com/soar/padcontrol/internal/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"trace": plog.LevelTrace,
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := plog.ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := plog.ParseLevel("loud")
	assert.Error(t, err)
}

func TestMultiHandlerAndFilter(t *testing.T) {
	var low, high bytes.Buffer
	h := plog.NewMultiHandler(
		plog.NewLevelFilter(func(l slog.Level) bool { return l < slog.LevelError },
			slog.NewTextHandler(&low, &slog.HandlerOptions{Level: slog.LevelDebug})),
		plog.NewLevelFilter(func(l slog.Level) bool { return l >= slog.LevelError },
			slog.NewTextHandler(&high, nil)),
	)
	logger := slog.New(h).With("component", "poller")

	logger.Debug("tick")
	logger.Error("source failed")

	assert.Contains(t, low.String(), "tick")
	assert.Contains(t, low.String(), "component=poller")
	assert.NotContains(t, low.String(), "source failed")
	assert.Contains(t, high.String(), "source failed")
	assert.NotContains(t, high.String(), "tick")
}

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padcontrol.log")
	logger, closer, err := plog.Setup(plog.Options{Level: "trace", File: path, Format: "json"})
	require.NoError(t, err)

	logger.Log(t.Context(), plog.LevelTrace, "sampled")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level=TRACE")
	assert.Contains(t, string(data), "sampled")
}

func TestSetupRejectsBadOptions(t *testing.T) {
	_, _, err := plog.Setup(plog.Options{Level: "loud"})
	assert.Error(t, err)
	_, _, err = plog.Setup(plog.Options{Format: "xml"})
	assert.Error(t, err)
}
