package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/inclusiva/core"
)

func TestZapLoggerFields(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	l := WrapZap(zap.New(obsCore))

	l.Warn("plan cache failed",
		errors.New("boom"),
		map[string]interface{}{"workspace_id": "ws1"},
		core.Person{ID: "m1", Email: "ana@escola.br", WorkspaceID: "ws1"},
		nil,
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "plan cache failed", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "ws1", ctx["workspace_id"])
	assert.Equal(t, "m1", ctx["person.id"])
	assert.Equal(t, "ana@escola.br", ctx["person.email"])
}

func TestNewZapLogger(t *testing.T) {
	conf := core.NewTestConfig()
	conf.LogLevel = "not-a-level"

	l, err := NewZapLogger(conf)
	require.NoError(t, err)
	assert.True(t, l.Zap().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
}
