// Package logging configures the process logger.
//
// The MCP stdio transport owns stdout, so log output goes to a file under
// the data directory and is mirrored to stderr through a console writer.
// The file is what the get_logs tool reads back.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultLogFile is the log file name used when a caller doesn't name one.
const DefaultLogFile = "combined.log"

// DefaultTailLines is the number of lines get_logs returns by default.
const DefaultTailLines = 100

// Options controls logger construction.
type Options struct {
	// Dir is the directory log files are written to. Created if missing.
	Dir string
	// Level is the minimum level ("debug", "info", ...). Empty means info.
	Level string
}

// New creates a logger writing to Dir/combined.log and stderr.
// The returned cleanup function closes the log file and must be called
// on shutdown; it is always non-nil.
func New(opts Options) (zerolog.Logger, func(), error) {
	noop := func() {}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("logging: create log dir: %w", err)
	}

	path := filepath.Join(opts.Dir, DefaultLogFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("logging: open log file: %w", err)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr}
	logger := zerolog.New(zerolog.MultiLevelWriter(file, console)).
		Level(level).
		With().
		Timestamp().
		Str("service", "prdforge").
		Logger()

	cleanup := func() { _ = file.Close() }
	return logger, cleanup, nil
}

// Tail returns the last n lines of the named log file in dir.
// An empty fileName means combined.log; n <= 0 means DefaultTailLines.
// File names containing path separators are rejected so callers can't
// read outside the log directory.
func Tail(dir, fileName string, n int) (string, error) {
	if fileName == "" {
		fileName = DefaultLogFile
	}
	if n <= 0 {
		n = DefaultTailLines
	}
	if fileName != filepath.Base(fileName) {
		return "", fmt.Errorf("logging: invalid log file name %q", fileName)
	}

	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		return "", fmt.Errorf("logging: read log file: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n"), nil
}
