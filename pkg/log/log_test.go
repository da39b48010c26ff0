package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	return rec
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"bogus":    zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"off":      zerolog.Disabled,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_WritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", ServiceName: "chat-relay", Writer: &buf})

	l.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Info().Msg("kept")
	rec := decodeLine(t, &buf)
	assert.Equal(t, "chat-relay", rec[FieldService])
	assert.Equal(t, "kept", rec["message"])
}

func TestConnectionAndEventScope(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(Config{Writer: &buf}))
	ctx = WithConnection(ctx, "c1", "u1", "user")
	ctx = WithEvent(ctx, "sendMessage", "u1")

	l := Ctx(ctx)
	l.Info().Msg("event")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "c1", rec[FieldClientID])
	assert.Equal(t, "u1", rec[FieldUserID])
	assert.Equal(t, "user", rec[FieldRole])
	assert.Equal(t, "sendMessage", rec[FieldEvent])
	assert.Equal(t, "u1", rec[FieldRoomID])
}

func TestCtx_FallsBackToProcessLogger(t *testing.T) {
	l := Ctx(context.Background())
	assert.Equal(t, L().GetLevel(), l.GetLevel())
}
