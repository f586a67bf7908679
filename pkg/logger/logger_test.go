package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit_RejectsUnknownLevel(t *testing.T) {
	err := Init("loud", "json", "stdout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInit_RejectsUnknownFormat(t *testing.T) {
	err := Init("info", "xml", "stdout")
	require.Error(t, err)
}

func TestInit_WritesJSONToFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "dash.log")
	require.NoError(t, Init("debug", "json", path))

	Info("render finished", zap.String("page", "demographics"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"message":"render finished"`)
	assert.Contains(t, line, `"page":"demographics"`)
}

func TestGetLogger_UsableBeforeInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
	assert.NotPanics(t, func() { Warn("no init yet") })
}
