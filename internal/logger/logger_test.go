package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuswiki/backend/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("写入轮转文件", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "logs", "app.log")

		log, err := NewLogger(config.LogConfig{Level: "info", File: file, MaxSize: 1})
		require.NoError(t, err)

		log.Info("moderation started")
		_ = log.Sync()

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "moderation started")
		assert.Contains(t, string(data), ServiceName)
	})

	t.Run("无效级别退回info", func(t *testing.T) {
		log, err := NewLogger(config.LogConfig{Level: "verbose", Development: true})
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(-1))
		assert.True(t, log.Core().Enabled(0))
	})
}
