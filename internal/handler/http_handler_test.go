package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SavioJohny/delivery-website/internal/archive"
	"github.com/SavioJohny/delivery-website/internal/domain"
)

func TestHTTP_OwnTranscript(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Append(ctx, "u1", domain.RoleUser, "hello")
	require.NoError(t, err)
	_, err = env.store.Append(ctx, "u2", domain.RoleUser, "other chat")
	require.NoError(t, err)

	resp, body := env.get(t, "/api/v1/chat", env.token(t, "u1", domain.RoleUser))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs []domain.ChatMessage
	require.NoError(t, json.Unmarshal(body["data"], &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Body)
}

func TestHTTP_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/api/v1/chat", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.get(t, "/api/v1/chat/admin", env.token(t, "u1", domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.get(t, "/api/v1/chat/u2/messages", env.token(t, "u1", domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHTTP_AdminListsChats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Append(ctx, "u1", domain.RoleUser, "first")
	require.NoError(t, err)
	_, err = env.store.Append(ctx, "u1", domain.RoleAdmin, "reply")
	require.NoError(t, err)
	env.tracker.MarkOnline("u1")
	env.tracker.MarkOnline("u9")

	resp, body := env.get(t, "/api/v1/chat/admin", env.token(t, "a1", domain.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chats []domain.ChatSummary
	require.NoError(t, json.Unmarshal(body["data"], &chats))
	require.Len(t, chats, 2)
	assert.Equal(t, "u1", chats[0].ChatOwnerID)
	assert.EqualValues(t, 2, chats[0].MessageCount)
	assert.True(t, chats[0].Online)
	assert.Equal(t, "u9", chats[1].ChatOwnerID)
	assert.Zero(t, chats[1].MessageCount)
}

func TestHTTP_AdminReadsTranscript(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.store.Append(context.Background(), "u1", domain.RoleUser, "hello")
	require.NoError(t, err)

	resp, body := env.get(t, "/api/v1/chat/u1/messages", env.token(t, "a1", domain.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs []domain.ChatMessage
	require.NoError(t, json.Unmarshal(body["data"], &msgs))
	require.Len(t, msgs, 1)

	resp, body = env.get(t, "/api/v1/chat/nobody/messages", env.token(t, "a1", domain.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body["data"]))
}

func TestPresenceAndHealth(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.MarkOnline("u1")

	resp, _ := env.get(t, "/api/v1/presence", env.token(t, "u1", domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.get(t, "/api/v1/presence", env.token(t, "a1", domain.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p PresenceResponse
	require.NoError(t, json.Unmarshal(body["data"], &p))
	assert.Equal(t, 1, p.Count)
	assert.Equal(t, "u1", p.Online[0].UserID)

	resp, body = env.get(t, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `true`, string(body["success"]))
	var health struct {
		Clients int `json:"clients"`
		Admins  int `json:"admins"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &health))
	assert.Zero(t, health.Admins)
}

func TestHTTP_ArchivesAfterClose(t *testing.T) {
	env := newTestEnv(t)

	admin := env.dial(t, env.token(t, "a1", domain.RoleAdmin))
	user := env.dial(t, env.token(t, "u1", domain.RoleUser))

	send(t, user, domain.EventJoinChat, nil)
	expect(t, user, domain.EventChatHistory)
	send(t, user, domain.EventSendMessage, map[string]string{"message": "parcel lost"})
	expect(t, user, domain.EventMessage)

	send(t, admin, domain.EventCloseChat, "u1")
	expect(t, user, domain.EventChatClosed)

	adminToken := env.token(t, "a1", domain.RoleAdmin)

	// The snapshot is written after chatClosed goes out.
	var objs []struct {
		Key string `json:"key"`
	}
	require.Eventually(t, func() bool {
		resp, body := env.get(t, "/api/v1/chat/u1/archives", adminToken)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		objs = nil
		return json.Unmarshal(body["data"], &objs) == nil && len(objs) == 1
	}, 3*time.Second, 20*time.Millisecond)

	name := objs[0].Key[strings.LastIndex(objs[0].Key, "/")+1:]
	resp, body := env.get(t, "/api/v1/chat/u1/archives/"+name, adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc archive.Transcript
	require.NoError(t, json.Unmarshal(body["data"], &doc))
	assert.Equal(t, "u1", doc.ChatOwnerID)
	assert.Equal(t, "a1", doc.ClosedBy)
	require.Len(t, doc.Messages, 1)
	assert.Equal(t, "parcel lost", doc.Messages[0].Body)

	resp, _ = env.get(t, "/api/v1/chat/u1/archives/missing.json", adminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
