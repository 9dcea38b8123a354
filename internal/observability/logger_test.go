package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreZerologGlobals(t *testing.T) {
	t.Helper()
	level, timeFormat := zerolog.GlobalLevel(), zerolog.TimeFieldFormat
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = timeFormat
	})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	return fields
}

func TestNewLogger_JSONFields(t *testing.T) {
	restoreZerologGlobals(t)
	var buf bytes.Buffer

	logger := NewLogger(LoggerConfig{
		Service:     "betting-node-eu",
		Environment: "staging",
		Level:       "info",
		Format:      "json",
		TimeFormat:  "unix",
		Output:      &buf,
	})
	logger.Info().Msg("started")

	fields := decodeLine(t, &buf)
	assert.Equal(t, "betting-node-eu", fields["service"])
	assert.Equal(t, "staging", fields["environment"])
	assert.Equal(t, "started", fields["message"])
	assert.Contains(t, fields, "caller")
	assert.IsType(t, float64(0), fields["time"])
}

func TestNewLogger_Defaults(t *testing.T) {
	restoreZerologGlobals(t)
	var buf bytes.Buffer

	logger := NewLogger(LoggerConfig{Output: &buf})
	logger.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Info().Msg("shown")
	fields := decodeLine(t, &buf)
	assert.Equal(t, defaultService, fields["service"])
	assert.NotContains(t, fields, "environment")
	assert.IsType(t, "", fields["time"])
}

func TestNewLogger_Console(t *testing.T) {
	restoreZerologGlobals(t)
	var buf bytes.Buffer

	logger := NewLogger(LoggerConfig{Format: "console", Output: &buf})
	logger.Warn().Msg("console line")

	assert.Contains(t, buf.String(), "console line")
	assert.Contains(t, buf.String(), "service=")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLogLevel(input), input)
	}
}

func TestBlockAndOperationLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	logger := OperationLogger(BlockLogger(base, 7, "abc"), 2, "post_bet")
	logger.Warn().Msg("operation rejected")

	fields := decodeLine(t, &buf)
	assert.Equal(t, float64(7), fields["block_height"])
	assert.Equal(t, "abc", fields["block_hash"])
	assert.Equal(t, float64(2), fields["op_index"])
	assert.Equal(t, "post_bet", fields["operation"])
}
