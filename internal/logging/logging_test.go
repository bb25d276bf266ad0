package logging

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithLevel_WritesDatedFile(t *testing.T) {
	dir := t.TempDir()
	defaultLogger := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(defaultLogger)
		log.SetOutput(os.Stderr)
	})

	closer, err := SetupWithLevel(dir, slog.LevelInfo)
	require.NoError(t, err)
	require.NotNil(t, closer)

	slog.Info("sweep finished", "flipped", 3)
	require.NoError(t, closer.Close())

	name := filepath.Join(dir, "log_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sweep finished")
	assert.Contains(t, string(data), "flipped=3")
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, slog.LevelDebug, levelFromEnv())
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, levelFromEnv())
}
