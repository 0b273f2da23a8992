package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEventWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	t.Cleanup(func() { Logger.SetOutput(os.Stdout) })

	LogEvent(logrus.WarnLevel, "quota.store_failure", logrus.Fields{"identity": "u1"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "quota.store_failure", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "u1", entry["identity"])
}

func TestConfigure(t *testing.T) {
	t.Cleanup(func() {
		Logger.SetOutput(os.Stdout)
		Logger.SetLevel(logrus.InfoLevel)
	})

	_, err := Configure("loud", "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "api.log")
	closer, err := Configure("debug", path)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	Component("session").Debug("session.created")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"session"`)
}
