package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SavioJohny/delivery-website/internal/domain"
)

func TestWebSocket_RejectsMissingCredential(t *testing.T) {
	env := newTestEnv(t)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/chat/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, env.hub.ClientCount())
}

func TestWebSocket_RejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/chat/ws?token=not-a-jwt"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_UserAndAdminConversation(t *testing.T) {
	env := newTestEnv(t)

	admin := env.dial(t, env.token(t, "a1", domain.RoleAdmin))
	user := env.dial(t, env.token(t, "u1", domain.RoleUser))

	send(t, user, domain.EventJoinChat, nil)
	history := expect(t, user, domain.EventChatHistory)
	assert.JSONEq(t, `[]`, string(history.Data))

	status := expect(t, admin, domain.EventUserStatus)
	var st domain.UserStatusPayload
	require.NoError(t, json.Unmarshal(status.Data, &st))
	assert.Equal(t, "u1", st.UserID)
	assert.Equal(t, domain.StatusOnline, st.Status)

	send(t, user, domain.EventSendMessage, map[string]string{"message": "  where is my parcel?  "})

	fromUser := expect(t, user, domain.EventMessage)
	toAdmin := expect(t, admin, domain.EventMessage)
	assert.JSONEq(t, string(fromUser.Data), string(toAdmin.Data))

	var msg domain.ChatMessage
	require.NoError(t, json.Unmarshal(toAdmin.Data, &msg))
	assert.Equal(t, "u1", msg.ChatOwnerID)
	assert.Equal(t, "where is my parcel?", msg.Body)
	assert.Equal(t, domain.RoleUser, msg.Sender)

	send(t, admin, domain.EventJoinChat, "u1")
	adminHistory := expect(t, admin, domain.EventChatHistory)
	var msgs []domain.ChatMessage
	require.NoError(t, json.Unmarshal(adminHistory.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)

	send(t, admin, domain.EventSendMessage, map[string]string{"user": "u1", "message": "On its way"})
	reply := expect(t, user, domain.EventMessage)
	require.NoError(t, json.Unmarshal(reply.Data, &msg))
	assert.Equal(t, domain.RoleAdmin, msg.Sender)
	assert.Equal(t, "u1", msg.ChatOwnerID)

	send(t, admin, domain.EventCloseChat, "u1")
	expect(t, user, domain.EventChatClosed)
	offline := expect(t, admin, domain.EventUserStatus)
	require.NoError(t, json.Unmarshal(offline.Data, &st))
	assert.Equal(t, domain.StatusOffline, st.Status)
	assert.False(t, env.tracker.IsOnline("u1"))
}

func TestWebSocket_ProtocolErrors(t *testing.T) {
	env := newTestEnv(t)
	user := env.dial(t, env.token(t, "u1", domain.RoleUser))

	errorMessage := func() string {
		ev := expect(t, user, domain.EventError)
		var p domain.ErrorPayload
		require.NoError(t, json.Unmarshal(ev.Data, &p))
		return p.Message
	}

	require.NoError(t, user.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, domain.MsgInvalidFormat, errorMessage())

	send(t, user, "teleport", nil)
	assert.Equal(t, domain.MsgUnknownMessageType, errorMessage())

	send(t, user, domain.EventSendMessage, map[string]string{"message": "   "})
	assert.Equal(t, domain.MsgEmptyMessage, errorMessage())

	send(t, user, domain.EventSendMessage, "just a string")
	assert.Equal(t, domain.MsgInvalidPayload, errorMessage())

	send(t, user, domain.EventPing, nil)
	expect(t, user, domain.EventPong)
}

func TestWebSocket_DisconnectMarksOffline(t *testing.T) {
	env := newTestEnv(t)
	admin := env.dial(t, env.token(t, "a1", domain.RoleAdmin))
	user := env.dial(t, env.token(t, "u1", domain.RoleUser))

	send(t, user, domain.EventJoinChat, nil)
	expect(t, user, domain.EventChatHistory)
	expect(t, admin, domain.EventUserStatus)

	require.NoError(t, user.Close())

	ev := expect(t, admin, domain.EventUserStatus)
	var st domain.UserStatusPayload
	require.NoError(t, json.Unmarshal(ev.Data, &st))
	assert.Equal(t, "u1", st.UserID)
	assert.Equal(t, domain.StatusOffline, st.Status)
}

func TestWebSocket_HubStopDrainsConnections(t *testing.T) {
	env := newTestEnv(t)
	user := env.dial(t, env.token(t, "u1", domain.RoleUser))

	send(t, user, domain.EventJoinChat, nil)
	expect(t, user, domain.EventChatHistory)
	require.True(t, env.tracker.IsOnline("u1"))

	env.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, env.hub.Wait(ctx))

	// Wait returns only after the disconnect path has run.
	assert.False(t, env.tracker.IsOnline("u1"))
	assert.Equal(t, 0, env.hub.ClientCount())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://shipments.example.com/"})

	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/chat/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, check(req("https://shipments.example.com")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("https://evil.example.com")))
	assert.True(t, originChecker(nil)(req("https://anything.example.com")))
}

func TestDecodeString(t *testing.T) {
	s, err := decodeString(nil)
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = decodeString(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = decodeString(json.RawMessage(`"u1"`))
	require.NoError(t, err)
	assert.Equal(t, "u1", s)

	_, err = decodeString(json.RawMessage(`{"id":"u1"}`))
	assert.Error(t, err)
}
