package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": LevelDebug, "": LevelInfo, "warning": LevelWarn, "error": LevelError, "none": LevelSilent,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelRoundTrip(t *testing.T) {
	l := NewNop()
	for _, lvl := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelSilent} {
		l.SetLevel(lvl)
		assert.Equal(t, lvl, l.GetLevel())
	}
}

func TestFieldConversion(t *testing.T) {
	fields := toZapFields(
		Int("n", 3),
		Uint64("id", 7),
		Float64("t", 0.5),
		String("kind", "voxel"),
		Error(errors.New("boom")),
		Duration("took", time.Second),
		Field{Key: "unknown"},
	)
	require.Len(t, fields, 7)
	assert.Equal(t, "n", fields[0].Key)
	assert.Equal(t, int64(3), fields[0].Integer)
	assert.Equal(t, int64(7), fields[1].Integer)
	assert.Equal(t, "voxel", fields[3].String)
	assert.Equal(t, "error", fields[4].Key)
	assert.Equal(t, int64(time.Second), fields[5].Integer)
	assert.Equal(t, zapcore.SkipType, fields[6].Type)
}

func TestNopLoggerIsSafe(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Named("engine").With(Int("bodies", 2)).Info("ok")
		l.Log(LevelError, "dropped")
	})
}
