package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		" WARN ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestHelpersWriteToInstalledLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Info("asset ingested", String("asset_id", "a1"), Int64("duration_ms", 1200))
	Warn("embedding fallback", ErrorField(errors.New("timeout")))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "asset ingested", entries[0].Message)
	assert.Equal(t, "a1", entries[0].ContextMap()["asset_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "timeout", entries[1].ContextMap()["error"])
}

func TestSetLoggerNilFallsBackToNop(t *testing.T) {
	SetLogger(nil)
	assert.NotPanics(t, func() { Error("dropped") })
}
