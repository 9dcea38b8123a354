package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultService = "betting-node"

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Service     string
	Environment string
	Level       string
	Format      string // "json" or "console"
	TimeFormat  string // "rfc3339", "rfc3339nano" or "unix"

	// Output defaults to stdout
	Output io.Writer
}

// NewLogger creates the node logger and installs it as the global one.
// Level and timestamp format are process wide in zerolog.
func NewLogger(config LoggerConfig) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLogLevel(config.Level))
	zerolog.TimeFieldFormat = timeFieldFormat(config.TimeFormat)

	output := config.Output
	if output == nil {
		output = os.Stdout
	}
	if config.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: consoleTimeFormat(config.TimeFormat),
		}
	}

	service := config.Service
	if service == "" {
		service = defaultService
	}

	ctx := zerolog.New(output).
		With().
		Timestamp().
		Str("service", service)
	if config.Environment != "" {
		ctx = ctx.Str("environment", config.Environment)
	}
	logger := ctx.Caller().Logger()

	log.Logger = logger

	return logger
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

func timeFieldFormat(format string) string {
	switch strings.ToLower(format) {
	case "unix":
		return zerolog.TimeFormatUnix
	case "rfc3339nano":
		return time.RFC3339Nano
	default:
		return time.RFC3339
	}
}

func consoleTimeFormat(format string) string {
	if strings.ToLower(format) == "rfc3339nano" {
		return time.RFC3339Nano
	}
	return time.RFC3339
}

// BlockLogger scopes a logger to the block being applied
func BlockLogger(logger zerolog.Logger, height int64, hash string) zerolog.Logger {
	return logger.With().
		Int64("block_height", height).
		Str("block_hash", hash).
		Logger()
}

// OperationLogger scopes a block logger to one of its operations
func OperationLogger(logger zerolog.Logger, index int, operation string) zerolog.Logger {
	return logger.With().
		Int("op_index", index).
		Str("operation", operation).
		Logger()
}
