// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// SetupHandler configures a text slog handler at the given level, writing
// to stderr.
func SetupHandler(logLevel string) slog.Handler {
	return SetupHandlerText(logLevel, nil)
}

// SetupHandlerText configures a text slog handler with the provided writer and log level
func SetupHandlerText(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	reportCaller := false
	reportTimestamp := false
	lvl := log.InfoLevel
	switch strings.ToLower(logLevel) {
	case "trace":
		reportCaller = true
		reportTimestamp = true
		lvl = log.DebugLevel
	case "debug":
		reportTimestamp = true
		lvl = log.DebugLevel
	case "info":
		lvl = log.InfoLevel
	case "warn", "warning":
		lvl = log.WarnLevel
	case "error":
		lvl = log.ErrorLevel
	}

	return log.NewWithOptions(writer, log.Options{
		ReportTimestamp: reportTimestamp,
		ReportCaller:    reportCaller,
		Level:           lvl,
	})
}

// SetupHandlerJSON configures a JSON slog handler with the provided writer and log level
func SetupHandlerJSON(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stdout
	}

	var level slog.Level
	addSource := false

	switch strings.ToLower(logLevel) {
	case "trace":
		addSource = true
		level = slog.LevelDebug
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	})
}

// Setup configures the default logger from a level, a format ("text" or
// "json"), and an output destination understood by CreateWriter.
func Setup(logLevel, format, output string) error {
	writer, err := CreateWriter(output)
	if err != nil {
		return err
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = SetupHandlerJSON(logLevel, writer)
	} else {
		handler = SetupHandlerText(logLevel, writer)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// SetupLogger configures the default logger based on provided log level
func SetupLogger(logLevel string) {
	slog.SetDefault(slog.New(SetupHandler(logLevel)))
}
