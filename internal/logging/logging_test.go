package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", false, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "path", "/out")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "path=/out")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", true, &buf)
	require.NoError(t, err)

	logger.Named("export").Info("saved", "format", "hls")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "streampack.export", line["@module"])
	assert.Equal(t, "hls", line["format"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", false, nil)
	assert.Error(t, err)
}
