// Package logging builds the logrus logger used by the CLI, optionally
// teeing into a size-rotated log file.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error; unknown values fall back to warn
	Format string // "text" or "json"

	// File enables rotated file output when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig logs warnings and above as text.
func DefaultConfig() Config {
	return Config{
		Level:      "warn",
		Format:     "text",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// Logger is a logrus logger plus the file it may own.
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

// New builds a logger writing to console and, when cfg.File is set, to a
// rotated file. Call Close to release the file.
func New(cfg Config, console io.Writer) *Logger {
	logger := logrus.New()
	logger.SetLevel(ParseLevel(cfg.Level))

	if strings.ToLower(cfg.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
			PadLevelText:    true,
		})
	}

	l := &Logger{Logger: logger}

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}
	if cfg.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		writers = append(writers, l.file)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return l
}

// ParseLevel parses a level name, falling back to warn.
func ParseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.WarnLevel
	}
	return parsed
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
