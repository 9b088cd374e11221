// Package logger owns the process-wide zerolog logger.
//
// Console output is human-readable and goes to stderr so that stdout stays
// free for command results (JSON in --json mode). When a log file is
// configured, the same events are also written to it as JSON lines, with
// size-based rotation.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger instance. It discards everything until Init
	// is called.
	Log = zerolog.Nop()

	// fileWriter is the rotating file output, nil when file logging is off.
	fileWriter *lumberjack.Logger
	fileMu     sync.Mutex
)

// Options configures Init.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// Verbose forces debug level regardless of Level.
	Verbose bool

	// File is the log file path. Empty disables file logging.
	File string

	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int

	// Console overrides the console destination. Defaults to os.Stderr.
	Console io.Writer
}

// GetMaxSizeMB returns the max size in MB, defaulting to 50 if not set.
func (o Options) GetMaxSizeMB() int {
	if o.MaxSizeMB <= 0 {
		return 50
	}
	return o.MaxSizeMB
}

// GetMaxAgeDays returns the max age in days, defaulting to 7 if not set.
func (o Options) GetMaxAgeDays() int {
	if o.MaxAgeDays <= 0 {
		return 7
	}
	return o.MaxAgeDays
}

// GetMaxBackups returns the max backups, defaulting to 3 if not set.
func (o Options) GetMaxBackups() int {
	if o.MaxBackups <= 0 {
		return 3
	}
	return o.MaxBackups
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
}

// Init (re)initializes the global logger. Any previously opened log file is
// closed first.
func Init(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
	}

	if err := Close(); err != nil {
		return fmt.Errorf("failed to close previous log file: %w", err)
	}

	var output io.Writer = consoleWriter
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		fw := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.GetMaxSizeMB(),
			MaxAge:     opts.GetMaxAgeDays(),
			MaxBackups: opts.GetMaxBackups(),
			LocalTime:  true,
		}
		fileMu.Lock()
		fileWriter = fw
		fileMu.Unlock()

		// Console gets the pretty format, the file gets raw JSON.
		output = zerolog.MultiLevelWriter(consoleWriter, fw)
	}

	Log = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

// Close closes the log file if one is open. Safe to call more than once.
func Close() error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// FilePath returns the current log file path, or "" when file logging is off.
func FilePath() string {
	fileMu.Lock()
	defer fileMu.Unlock()

	if fileWriter == nil {
		return ""
	}
	return fileWriter.Filename
}
