package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSetsLevelAndFormat(t *testing.T) {
	log := New(LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
	require.Equal(t, "debug", log.GetLevel().String())
}

func TestNewCreatesLogFile(t *testing.T) {
	originalWD, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(originalWD) })

	temp := t.TempDir()
	require.NoError(t, os.Chdir(temp))

	log := New(LoggingConfig{Level: "info", Format: "text", Output: "file", FilePrefix: "test"})
	log.Info("hello")

	data, err := os.ReadFile(filepath.Join("logs", "test.log"))
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestNewDefaultStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewDefault("failover")
	log.SetOutput(&buf)
	log.Info("tick")

	require.Contains(t, buf.String(), "component=failover")
}
