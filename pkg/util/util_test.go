package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(time.Unix(1000, 0))
	require.Equal(t, uint64(1000), Unix(c))

	c.Advance(90 * time.Second)
	require.Equal(t, uint64(1090), Unix(c))

	c.Set(time.Unix(-5, 0))
	require.Equal(t, uint64(0), Unix(c))
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "node.log")
	logger, err := NewLoggerWithFile(LogFile{Path: path})
	require.NoError(t, err)

	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
}
