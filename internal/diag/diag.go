// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

// Package diag provides the library's opt-in structured logger. Nothing
// in cakes logs unless a caller explicitly attaches one via
// BuildOption/WithLogger; New here just standardizes how this repo's own
// tests and cmd/cakes-demo construct one, following the teacher's
// env-var-selected log level idiom.
package diag

import (
	"log/slog"
	"os"
)

// New returns a text-handler slog.Logger writing to stderr, with its level
// controlled by the CAKES_LOGLEVEL environment variable ("debug", "info",
// "warn", "error"; defaults to "info").
func New() *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelFromEnv()})
	return slog.New(h)
}

func levelFromEnv() slog.Level {
	switch os.Getenv("CAKES_LOGLEVEL") {
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
