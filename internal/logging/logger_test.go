package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/reel/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOptions_FansOut(t *testing.T) {
	var text bytes.Buffer
	path := filepath.Join(t.TempDir(), "reel.jsonl")

	logger, closer, err := logging.NewWithOptions(logging.Options{
		Level:    slog.LevelDebug,
		Writer:   &text,
		JSONFile: path,
	})
	require.NoError(t, err)

	logger.Debug("slide entered", "slide", "intro", "error", errors.New("boom"))
	require.NoError(t, closer.Close())

	assert.Contains(t, text.String(), "slide=intro")
	assert.Contains(t, text.String(), "err=boom")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &rec))
	assert.Equal(t, "slide entered", rec["msg"])
	assert.Equal(t, "boom", rec["err"])
}

func TestNewWithOptions_Level(t *testing.T) {
	var text bytes.Buffer
	logger, _, err := logging.NewWithOptions(logging.Options{Level: slog.LevelWarn, Writer: &text})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, text.String(), "hidden")
	assert.Contains(t, text.String(), "shown")
}

func TestNewWithOptions_BadFile(t *testing.T) {
	logger, _, err := logging.NewWithOptions(logging.Options{
		Writer:   &bytes.Buffer{},
		JSONFile: filepath.Join(t.TempDir(), "missing", "dir", "x.log"),
	})
	assert.Error(t, err)
	assert.NotNil(t, logger)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("nonsense"))
}
