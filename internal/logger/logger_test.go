package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warn "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestToZapFields(t *testing.T) {
	fields := toZapFields([]any{"source", "pcdf", "error", errors.New("boom"), 42})
	if assert.Len(t, fields, 3) {
		assert.Equal(t, "source", fields[0].Key)
		assert.Equal(t, "error", fields[1].Key)
		assert.Equal(t, zapcore.ErrorType, fields[1].Type)
		assert.Equal(t, "extra", fields[2].Key)
	}
}

func TestNopLoggerWith(t *testing.T) {
	l := NewNop()
	child := l.With("component", "test")
	assert.NotNil(t, child)
	child.Info("ignored", "k", "v")
}
