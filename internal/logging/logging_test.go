package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/object-counter/internal/config"
)

func TestSetupJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, Setup(config.LoggingConfig{Level: "warn", Format: "json"}, &buf))

	log.Info().Msg("hidden")
	log.Warn().Str("backend", "mock").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "mock", entry["backend"])
	assert.Equal(t, "warn", entry["level"])
}

func TestSetupConsole(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, Setup(config.LoggingConfig{Level: "INFO", Format: "console"}, &buf))

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestSetupInvalidLevel(t *testing.T) {
	assert.Error(t, Setup(config.LoggingConfig{Level: "loud", Format: "json"}, &bytes.Buffer{}))
}
