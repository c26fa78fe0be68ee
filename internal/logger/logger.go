// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sends human-readable logs to stderr and, if logPath is set, JSON logs
// to that file. The returned function closes the file.
func Init(debug bool, logPath string) (func(), error) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	cleanup := func() {}

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		out = zerolog.MultiLevelWriter(out, f)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if debug {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return cleanup, nil
}
