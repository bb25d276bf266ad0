// Package logging configures slog with a tint handler on stderr and, when a
// log directory is set, a dated plain-text file next to it.
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger. The returned closer is nil when no log
// directory is configured.
func Setup(logDir string) (io.Closer, error) {
	return SetupWithLevel(logDir, levelFromEnv())
}

func SetupWithLevel(logDir string, level slog.Level) (io.Closer, error) {
	var out io.Writer = os.Stderr
	var file *os.File

	if logDir != "" {
		f, err := openDatedFile(logDir, time.Now())
		if err != nil {
			return nil, err
		}
		file = f
		out = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			AddSource:  true,
			NoColor:    file != nil,
		}),
	))
	// gin and third-party code still write through the std logger
	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if file == nil {
		return nil, nil
	}
	return file, nil
}

func openDatedFile(logDir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := filepath.Join(logDir, fmt.Sprintf("log_%s.log", now.Format("2006-01-02")))
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
