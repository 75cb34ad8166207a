// Package logging wires up zerolog the way the teacher's cmd/cryptorun
// entrypoint does: RFC3339 timestamps and a human-readable console
// writer for interactive use. The daemon additionally logs to a file,
// since its stderr isn't attached to anything once detached.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// NewConsole returns a logger writing human-readable lines to stderr,
// for the `hl` CLI.
func NewConsole() zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).With().Timestamp().Logger()
}

// NewDaemon returns a logger for `hld`: JSON lines to logPath, and, when
// attached is true (foreground, not detached), also a human-readable
// copy on stderr.
func NewDaemon(logPath string, attached bool) (zerolog.Logger, func() error, error) {
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	var out io.Writer = file
	if attached {
		console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		out = zerolog.MultiLevelWriter(file, console)
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	return logger, file.Close, nil
}
