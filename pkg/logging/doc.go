// Package logging provides structured logging configuration for hyperstub.
//
// This package wraps log/slog so the mock server, control API and CLI log
// the same way.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("mock server started", "addr", addr)
//
// Components accept a *slog.Logger through an option and fall back to
// Nop when none is provided.
package logging
