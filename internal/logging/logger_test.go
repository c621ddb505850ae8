package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinbox/internal/config"
)

func TestNew_LevelFallback(t *testing.T) {
	logger := New(config.LogConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger = New(config.LogConfig{Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestLogError_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "info", Format: "json"}, &buf)

	LogError(logger, "repository", "Add", map[string]any{"id": 7}, errors.New("disk full"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "disk full", entry["msg"])
	assert.Equal(t, "repository", entry["module"])
	assert.Equal(t, "Add", entry["funcName"])
	assert.Equal(t, "error", entry["level"])
}
