package logging

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
)

type ZapLogger struct {
	l *zap.SugaredLogger
}

func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{l: l.Sugar()}
}

func (z *ZapLogger) Debug(_ context.Context, msg string, args ...any) {
	z.l.Debugw(msg, resolve(args)...)
}

func (z *ZapLogger) Info(_ context.Context, msg string, args ...any) {
	z.l.Infow(msg, resolve(args)...)
}

func (z *ZapLogger) Warn(_ context.Context, msg string, args ...any) {
	z.l.Warnw(msg, resolve(args)...)
}

func (z *ZapLogger) Error(_ context.Context, msg string, args ...any) {
	z.l.Errorw(msg, resolve(args)...)
}

func (z *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{l: z.l.With(resolve(args)...)}
}

// resolve masks secret keys and applies slog.LogValuer so redacting types
// behave the same under both backends.
func resolve(args []any) []any {
	out := mask(args)
	for i, a := range out {
		if lv, ok := a.(slog.LogValuer); ok {
			out[i] = lv.LogValue().Resolve().Any()
		}
	}
	return out
}
