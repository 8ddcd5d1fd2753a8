package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return NewSlogLogger(slog.New(h)), &buf
}

type secretThing struct{}

func (secretThing) LogValue() slog.Value { return slog.StringValue("[redacted]") }

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		kv    string
	}{
		{"DEBUG", "dbg", "a=1"},
		{"INFO", "inf", "b=2"},
		{"WARN", "wrn", "c=3"},
		{"ERROR", "err", "d=4"},
	}

	for _, tc := range tests {
		assert.Contains(t, out, "level="+tc.level)
		assert.Contains(t, out, "msg="+tc.msg)
		assert.Contains(t, out, tc.kv)
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("wallet", "rAbc", "op", "send").Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	for _, s := range []string{"level=INFO", "msg=hello", "wallet=rAbc", "op=send", "k=v"} {
		assert.Contains(t, out, s)
	}
}

func TestSlogLogger_RespectsLogValuer(t *testing.T) {
	log, buf := newTestLogger(t)

	log.Info(context.Background(), "unlock", "kp", secretThing{})

	assert.Contains(t, buf.String(), "kp=[redacted]")
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		level   string
		wantErr bool
	}{
		{name: "slog default", backend: "", level: "info"},
		{name: "slog debug", backend: "slog", level: "debug"},
		{name: "zap", backend: "zap", level: "warn"},
		{name: "zap upper case", backend: "ZAP", level: "error"},
		{name: "bad backend", backend: "logrus", level: "info", wantErr: true},
		{name: "bad slog level", backend: "slog", level: "loud", wantErr: true},
		{name: "bad zap level", backend: "zap", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(tt.backend, tt.level, &buf)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, l)
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("slog", "warn", &buf)
	require.NoError(t, err)

	l.Info(context.Background(), "quiet")
	l.Warn(context.Background(), "loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestSlogLogger_MasksSecretKeys(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("Seed", "sEdXXX").Info(context.Background(), "imported", "password", "hunter2", "address", "rAbc")

	out := buf.String()
	assert.NotContains(t, out, "sEdXXX")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "password=[redacted]")
	assert.Contains(t, out, "address=rAbc")
}

func TestMask_OddArgsAndCopy(t *testing.T) {
	args := []any{"seed", "s1", "dangling"}
	got := mask(args)
	assert.Equal(t, []any{"seed", masked, "dangling"}, got)
	assert.Equal(t, "s1", args[1])
}
