package infrastructure

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// SetupLogging configures a zerolog logger writing to both console and
// a timestamped log file. Returns the file handle for the caller to
// close on exit.
func SetupLogging(logDir string) (zerolog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logFilename := filepath.Join(logDir, fmt.Sprintf("ransomwatch_%s.log", timestamp))

	logFile, err := os.OpenFile(logFilename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	multi := io.MultiWriter(console, logFile)

	logger := zerolog.New(multi).With().Timestamp().Logger()
	logger.Info().Str("file", logFilename).Msg("logging initialized")

	return logger, logFile, nil
}

// ConsoleLogger returns a console-only logger, used as a fallback when
// file logging cannot be set up.
func ConsoleLogger() zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	return zerolog.New(console).With().Timestamp().Logger()
}

// CleanupOldLogs removes log files older than maxAge
func CleanupOldLogs(logDir string, maxAge time.Duration) error {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(logDir, entry.Name()))
		}
	}

	return nil
}
