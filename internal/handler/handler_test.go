package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/SavioJohny/delivery-website/internal/archive"
	"github.com/SavioJohny/delivery-website/internal/config"
	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/internal/hub"
	"github.com/SavioJohny/delivery-website/internal/identity"
	"github.com/SavioJohny/delivery-website/internal/presence"
	"github.com/SavioJohny/delivery-website/internal/service"
	"github.com/SavioJohny/delivery-website/internal/store"
	"github.com/SavioJohny/delivery-website/pkg/jwt"
	"github.com/SavioJohny/delivery-website/pkg/middleware"
	"github.com/SavioJohny/delivery-website/pkg/storage"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	server  *httptest.Server
	tokens  *jwt.Manager
	store   *store.MemoryStore
	tracker *presence.Tracker
	hub     *hub.Hub
	archive *archive.Archiver
	stop    context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := jwt.NewManager(testSecret, time.Hour, "delivery-website")
	require.NoError(t, err)

	messages := store.NewMemoryStore()
	tracker := presence.NewTracker()
	h := hub.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	objects, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	archives := archive.NewArchiver(objects, "")

	svc := service.NewChatService(h, messages, tracker, nil, time.Second, service.WithArchiver(archives))
	resolver := identity.NewJWTResolver(tokens, false)
	auth := middleware.NewAuthMiddleware(identity.MiddlewareFunc(resolver))

	wsCfg := config.WebSocketConfig{
		PingInterval:   time.Minute,
		PongWait:       2 * time.Minute,
		WriteWait:      5 * time.Second,
		MaxMessageSize: 8192,
		SendBuffer:     64,
	}
	ws := NewWSHandler(h, svc, resolver, wsCfg, config.RateLimitConfig{}, nil)

	router := NewRouter(zerolog.Nop(), h, auth, ws, NewHTTPHandler(messages, tracker, auth, archives), NewPresenceHandler(tracker))
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return &testEnv{server: srv, tokens: tokens, store: messages, tracker: tracker, hub: h, archive: archives, stop: cancel}
}

func (e *testEnv) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	tok, err := e.tokens.Generate(userID, string(role))
	require.NoError(t, err)
	return tok
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/chat/ws?token=" + url.QueryEscape(token)
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, eventType string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": eventType, "data": data}))
}

// expect reads frames until one of the wanted type arrives.
func expect(t *testing.T, conn *websocket.Conn, eventType string) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev received
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", eventType)
		if ev.Type == eventType {
			return ev
		}
	}
}

func (e *testEnv) get(t *testing.T, path, token string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}
