package log

import (
	"context"
	"log/slog"
	"os"
)

var (
	level         slog.LevelVar
	defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     &level,
	}))
)

func init() {
	level.Set(slog.LevelInfo)
}

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger stored in ctx or the package default.
func Ctx(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return defaultLogger
}

// With returns a copy of ctx carrying logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithAttrs returns a copy of ctx whose logger has the given attributes
// attached. It is how request-scoped fields (path, request id) travel through
// the client without every call site repeating them.
func WithAttrs(ctx context.Context, attrs ...any) context.Context {
	return With(ctx, Ctx(ctx).With(attrs...))
}

// SetLevel changes the level of the default logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Token returns a loggable stand-in for a bearer or refresh token.
func Token(tok string) slog.Attr {
	if tok == "" {
		return slog.Bool("token", false)
	}
	if len(tok) <= 8 {
		return slog.String("token", "***")
	}
	return slog.String("token", tok[:4]+"..."+tok[len(tok)-4:])
}
