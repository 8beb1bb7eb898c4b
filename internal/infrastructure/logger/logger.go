package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/clienttx/internal/domain"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console

	// Output defaults to os.Stdout.
	Output io.Writer
}

// New creates a new zerolog logger based on config.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.Output != nil,
		}
	}

	level := parseLevel(cfg.Level)

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "clienttx").
		Logger()
}

// ForClientTransaction returns a child logger tagged with the client
// transaction key.
func ForClientTransaction(l zerolog.Logger, key domain.ClientTransactionKey) zerolog.Logger {
	return l.With().
		Str("client_transaction_id", key.ClientTransactionID).
		Str("account_id", key.AccountID).
		Logger()
}

// parseLevel accepts zerolog level names plus "warning"; anything else,
// including an empty string, means info.
func parseLevel(level string) zerolog.Level {
	if level == "warning" {
		return zerolog.WarnLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
