package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewZapAdapter(zap.New(core)), logs
}

func TestZapAdapterLevels(t *testing.T) {
	log, logs := newObservedLogger()

	log.Debug("debug msg", nil)
	log.Info("info msg", map[string]interface{}{"submissionId": "sub-1"})
	log.Warn("warn msg", nil)
	log.Error("error msg", nil)

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	assert.Equal(t, "info msg", entries[1].Message)
	assert.Equal(t, "sub-1", entries[1].ContextMap()["submissionId"])
}

func TestWithFieldsAttachesToEveryEntry(t *testing.T) {
	log, logs := newObservedLogger()

	jobLog := log.WithFields(map[string]interface{}{"job": "compliance-sweep"})
	jobLog.Info("cycle started", nil)
	jobLog.Info("cycle finished", map[string]interface{}{"evaluated": 12})

	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "compliance-sweep", entry.ContextMap()["job"])
	}
	assert.Equal(t, int64(12), logs.All()[1].ContextMap()["evaluated"])

	// The parent logger is untouched.
	log.Info("bare", nil)
	assert.NotContains(t, logs.All()[2].ContextMap(), "job")
}

func TestWithError(t *testing.T) {
	log, logs := newObservedLogger()

	log.WithError(errors.New("dial timeout")).Error("dispatch failed", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "dial timeout", logs.All()[0].ContextMap()["error"])
}

func TestNewLevelParsing(t *testing.T) {
	assert.True(t, New("debug", "json").Core().Enabled(zap.DebugLevel))
	assert.False(t, New("warn", "console").Core().Enabled(zap.InfoLevel))
	assert.False(t, New("error", "json").Core().Enabled(zap.WarnLevel))
	// Unknown levels fall back to info.
	assert.True(t, New("verbose", "json").Core().Enabled(zap.InfoLevel))
}

func TestNewStructuredAndNoOp(t *testing.T) {
	assert.NotNil(t, NewStructured("info", "json"))

	// Must not panic even with nil field maps.
	noop := NewNoOpLogger()
	noop.Info("ignored", nil)
	noop.WithError(errors.New("x")).Warn("ignored", map[string]interface{}{"k": "v"})
}
