// Package logging configures the process-wide slog logger with a
// charmbracelet/log handler.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"

	lerrors "github.com/ersonp/lineage/internal/errors"
	"github.com/ersonp/lineage/internal/infrastructure/config"
)

// New builds a logger writing to w at the configured level and format
// ("text", "json" or "logfmt").
func New(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.CodeConfigValidateInvalidValue, "parsing log level",
			lerrors.Field("level", cfg.Level))
	}

	var formatter log.Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, lerrors.New(lerrors.CodeConfigValidateInvalidValue, "unknown log format",
			lerrors.Field("format", cfg.Format))
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter,
	})
	return slog.New(handler), nil
}

// Setup builds a logger with New and installs it as the slog default.
func Setup(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	logger, err := New(w, cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
