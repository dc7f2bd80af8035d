package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("wallet_id", "abc").Msg("balance updated")

	var output map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &output)
	require.NoError(t, err, "logger output should be valid JSON")

	assert.Equal(t, "balance updated", output["message"])
	assert.Equal(t, "abc", output["wallet_id"])
	assert.Equal(t, "info", output["level"])
	assert.Equal(t, "escrow-settlement-engine", output["service"])
	assert.Contains(t, output, "time", "should include timestamp")
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info().Msg("should not appear")
	assert.Empty(t, buf.String())

	log.Warn().Msg("warn msg")
	assert.NotEmpty(t, buf.String())
}

func TestNewWithWriter_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Debug().Msg("debug msg")
	assert.NotEmpty(t, buf.String(), "debug messages should be logged at debug level")
}

func TestNewWithWriter_InvalidLevel_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("invalid", &buf)

	log.Debug().Msg("should not appear")
	assert.Empty(t, buf.String(), "invalid level should default to info, filtering debug")

	log.Info().Msg("should appear")
	assert.NotEmpty(t, buf.String())
}

func TestNew_PrettyMode(t *testing.T) {
	// Just ensure it doesn't panic — pretty mode writes to stdout.
	log := New("info", true)
	log.Info().Msg("pretty mode test")
}
