package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(" info "))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("bogus"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(""))
}

func TestNew_ConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	logger := New(cfg, &buf)
	defer logger.Close()

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"
	logger := New(cfg, &buf)

	logger.WithField("uri", "users").Warn("dispatching request")

	assert.Contains(t, buf.String(), `"uri":"users"`)
	assert.Contains(t, buf.String(), `"msg":"dispatching request"`)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volley.log")
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.File = path

	logger := New(cfg, nil)
	logger.Debug("to file")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
