// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging builds the process-wide slog logger for the research
// service and the CLI.
//
// # Description
//
// The package wraps log/slog with a small Config: level, output format,
// and optional file duplication. Services install the result via
// slog.SetDefault and keep using slog directly; nothing in this package
// appears on call sites.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures the logger.
//
// A zero-value Config writes Info+ messages to stderr as text. Setting
// LogDir duplicates every record to a JSON file under that directory,
// which is what the container deployments ship to their collectors.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", or "error".
	// Unrecognised values fall back to info.
	Level string

	// JSON switches stderr output to JSON. File output is always JSON.
	JSON bool

	// LogDir enables file logging to "<LogDir>/<Service>.log". Supports a
	// leading ~ for the home directory. Empty disables file output.
	LogDir string

	// Service tags every record with a "service" attribute and names the
	// log file.
	Service string
}

// ConfigFromEnv reads NEBULA_LOG_LEVEL, NEBULA_LOG_JSON, and
// NEBULA_LOG_DIR. Unset variables keep the zero-value defaults.
func ConfigFromEnv() Config {
	return Config{
		Level:   os.Getenv("NEBULA_LOG_LEVEL"),
		JSON:    os.Getenv("NEBULA_LOG_JSON") == "true",
		LogDir:  os.Getenv("NEBULA_LOG_DIR"),
		Service: "research",
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// =============================================================================
// Constructor
// =============================================================================

// NewLogger builds a slog.Logger per cfg. The returned logger writes to
// stderr and, when cfg.LogDir is set, also appends JSON records to the
// service's log file. File open failures are returned, not swallowed; a
// service that asked for file logs should not start without them.
func NewLogger(cfg Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var stderrHandler slog.Handler
	if cfg.JSON {
		stderrHandler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		stderrHandler = slog.NewTextHandler(os.Stderr, opts)
	}

	handler := stderrHandler
	if cfg.LogDir != "" {
		dir := expandPath(cfg.LogDir)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := cfg.Service
		if name == "" {
			name = "nebula"
		}
		f, err := os.OpenFile(filepath.Join(dir, name+".log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		handler = newTeeHandler(stderrHandler, slog.NewJSONHandler(f, opts))
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	return logger, nil
}

// =============================================================================
// Tee Handler
// =============================================================================

// teeHandler fans each record out to every underlying handler. Enabled
// delegates to the first handler; all handlers here share one level.
type teeHandler struct {
	handlers []slog.Handler
}

func newTeeHandler(handlers ...slog.Handler) slog.Handler {
	return &teeHandler{handlers: handlers}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handlers[0].Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, sub := range h.handlers {
		if err := sub.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, sub := range h.handlers {
		next[i] = sub.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, sub := range h.handlers {
		next[i] = sub.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}

// expandPath resolves a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
