package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	defer SetLogger(zap.NewNop())

	require.NoError(t, InitLogger("production", ""))
	assert.True(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, GetLogger().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, InitLogger("development", "warn"))
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))

	assert.Error(t, InitLogger("development", "loud"))
}
