package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		" WARN ":  logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"verbose": logrus.InfoLevel,
		"":        logrus.InfoLevel,
	}
	for name, want := range tests {
		SetLevel(name)
		assert.Equal(t, want, Logger.GetLevel(), "level %q", name)
	}
}

func TestComponentWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Component("stitcher").WithField("frames", 3).Info("Stitch completed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stitcher", entry["component"])
	assert.Equal(t, float64(3), entry["frames"])
	assert.Equal(t, "Stitch completed", entry["msg"])
}
