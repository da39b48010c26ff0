package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx falls back to the process logger when ctx carries none.
func Ctx(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			return l
		}
	}
	return L()
}

// WithConnection scopes the logger in ctx to one WebSocket connection.
func WithConnection(ctx context.Context, clientID, userID, role string) context.Context {
	l := Ctx(ctx)
	return WithLogger(ctx, l.With().
		Str(FieldClientID, clientID).
		Str(FieldUserID, userID).
		Str(FieldRole, role).
		Logger())
}

// WithEvent adds the inbound event type, and the chat when known.
func WithEvent(ctx context.Context, event, roomID string) context.Context {
	l := Ctx(ctx)
	zctx := l.With().Str(FieldEvent, event)
	if roomID != "" {
		zctx = zctx.Str(FieldRoomID, roomID)
	}
	return WithLogger(ctx, zctx.Logger())
}
