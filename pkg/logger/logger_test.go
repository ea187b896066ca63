package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		environment string
	}{
		{name: "production json", level: "info", environment: "production"},
		{name: "staging json", level: "debug", environment: "staging"},
		{name: "development console", level: "warn", environment: "development"},
		{name: "unknown level falls back", level: "loud", environment: "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.environment)
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestFieldChaining(t *testing.T) {
	log, err := New("error", "test")
	require.NoError(t, err)

	chained := log.WithField("test_id", "t1").
		WithFields(map[string]interface{}{"round": 2}).
		WithError(assert.AnError)
	require.NotNil(t, chained)
	assert.NotSame(t, log, chained, "chaining returns derived loggers")
}
