package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Options selects the sinks of an application logger.
type Options struct {
	// Level is the minimum level for every sink.
	Level slog.Level
	// Writer receives human-readable text. Defaults to Stderr.
	Writer io.Writer
	// JSONFile, when set, also appends JSON records to that file.
	JSONFile string
}

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout command output).
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	logger, _, _ := NewWithOptions(Options{Level: level})
	return logger
}

// NewWithOptions builds a logger that fans records out to a text sink and,
// optionally, a JSON file. The returned closer releases the file.
func NewWithOptions(opts Options) (*slog.Logger, io.Closer, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: replaceAttr,
	}

	handlers := []slog.Handler{slog.NewTextHandler(w, hopts)}
	var closer io.Closer = nopCloser{}
	if opts.JSONFile != "" {
		f, err := os.OpenFile(opts.JSONFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return slog.New(handlers[0]), closer, fmt.Errorf("failed to open log file %s: %w", opts.JSONFile, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, hopts))
		closer = f
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// ParseLevel maps a config string to a level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	// Standardize 'error' key to 'err'
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
