package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer

	logger, err := NewLogger(Config{Level: "info", Format: "json", Output: &buffer})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.With(String("component", "loader")).Error("load failed", Error(errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "load failed", entry["message"])
	require.Equal(t, "loader", entry["component"])
	require.Equal(t, "boom", entry["error"])
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(Config{Level: "loud"})
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	logger := Nop()

	logger.Info("nothing")
	require.NoError(t, logger.Sync())
}
