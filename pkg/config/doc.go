// Package config loads hyperstub settings.
//
// Values come, in increasing precedence, from built-in defaults, an
// optional config file (YAML, JSON or TOML), HYPERSTUB_* environment
// variables and command-line flags bound by the CLI. Nested keys map to
// environment variables with underscores, so log.level is read from
// HYPERSTUB_LOG_LEVEL.
//
// A preload file declares stubs and literal factory definitions to install
// at startup. It is decoded without case folding so response bodies keep
// their keys as written.
package config
