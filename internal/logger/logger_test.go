package logger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkclean/internal/logger"
)

func TestNewAppliesDefaults(t *testing.T) {
	log, err := logger.New(&logger.Config{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNewWithAllLevels(t *testing.T) {
	for _, level := range []logger.Level{
		logger.DebugLevel,
		logger.InfoLevel,
		logger.WarnLevel,
		logger.ErrorLevel,
	} {
		log, err := logger.New(&logger.Config{Level: level})
		require.NoError(t, err, "level %s", level)
		require.NotNil(t, log)
	}
}

func TestNewWithEncodings(t *testing.T) {
	for _, encoding := range []string{"console", "json"} {
		log, err := logger.New(&logger.Config{Encoding: encoding})
		require.NoError(t, err, "encoding %s", encoding)
		require.NotNil(t, log)
	}
}

func TestWithHelpersReturnNewLoggers(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: logger.InfoLevel})
	require.NoError(t, err)

	assert.NotNil(t, log.With("key", "value"))
	assert.NotNil(t, log.WithComponent("pipeline"))
	assert.NotNil(t, log.WithRunID("run-1"))
	assert.NotNil(t, log.WithDuration(time.Second))
	assert.NotNil(t, log.WithError(errors.New("boom")))
}

func TestNoOpLoggerIsSafe(t *testing.T) {
	log := logger.NewNoOp()

	// None of these should panic or emit output.
	log.Debug("debug", "k", "v")
	log.Info("info")
	log.Warn("warn", "odd-key")
	log.Error("error", "err", errors.New("x"))
	assert.Equal(t, log, log.With("a", 1))
	assert.Equal(t, log, log.WithComponent("c"))
}
