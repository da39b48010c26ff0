package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SavioJohny/delivery-website/internal/audit"
	"github.com/SavioJohny/delivery-website/internal/config"
	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/internal/hub"
	"github.com/SavioJohny/delivery-website/internal/identity"
	"github.com/SavioJohny/delivery-website/internal/service"
	"github.com/SavioJohny/delivery-website/pkg/log"
	"github.com/SavioJohny/delivery-website/pkg/middleware"
	"github.com/SavioJohny/delivery-website/pkg/response"
)

type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	resolver identity.Resolver
	wsCfg    config.WebSocketConfig
	rateCfg  config.RateLimitConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(
	h *hub.Hub,
	svc service.ChatService,
	resolver identity.Resolver,
	wsCfg config.WebSocketConfig,
	rateCfg config.RateLimitConfig,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		resolver: resolver,
		wsCfg:    wsCfg,
		rateCfg:  rateCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows every origin when the list is empty.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[u.Scheme+"://"+u.Host]
		return ok
	}
}

// HandleWebSocket authenticates before upgrading: a bad or missing credential
// gets a plain 401 and never reaches an open connection.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := log.Ctx(r.Context())

	id, err := h.resolver.Resolve(r.Context(), middleware.TokenFromRequest(r))
	if err != nil {
		audit.LogWithDetail(r.Context(), audit.ActionAuthFailed, "", "", err.Error(), "websocket handshake rejected")
		response.WriteError(w, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.NewString(), id, h.hub, conn, h.wsCfg)
	client.SetRateLimit(h.rateCfg.MessagesPerSecond, h.rateCfg.Burst)
	h.hub.Register(client)

	// The request context ends when this handler returns, so events run on
	// a context of their own carrying the connection logger.
	ctx := log.WithConnection(log.WithLogger(context.Background(), l), client.ID, id.UserID, string(id.Role))
	connLogger := log.Ctx(ctx)

	connLogger.Info().Msg("websocket connected")

	client.Start(
		func(c *hub.Client, message []byte) { h.handleMessage(ctx, c, message) },
		func(c *hub.Client) {
			if err := h.service.HandleDisconnect(ctx, c); err != nil {
				connLogger.Error().Err(err).Msg("disconnect handling failed")
			}
			connLogger.Info().Msg("websocket disconnected")
		},
	)
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, message []byte) {
	l := log.Ctx(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			l.Error().Interface("panic", rec).Msg("event handler panicked")
		}
	}()

	var in domain.InboundEvent
	if err := json.Unmarshal(message, &in); err != nil {
		client.SendMessage(domain.NewErrorEvent(domain.MsgInvalidFormat))
		return
	}

	ctx = log.WithEvent(ctx, in.Type, "")
	evLogger := log.Ctx(ctx)

	var err error
	switch in.Type {
	case domain.EventJoinChat:
		var target string
		if target, err = decodeString(in.Data); err != nil {
			client.SendMessage(domain.NewErrorEvent(domain.MsgInvalidPayload))
			return
		}
		err = h.service.HandleJoinChat(ctx, client, target)

	case domain.EventSendMessage:
		var payload domain.SendMessagePayload
		if len(in.Data) > 0 {
			if err = json.Unmarshal(in.Data, &payload); err != nil {
				client.SendMessage(domain.NewErrorEvent(domain.MsgInvalidPayload))
				return
			}
		}
		err = h.service.HandleSendMessage(ctx, client, payload)

	case domain.EventCloseChat:
		var ownerID string
		if ownerID, err = decodeString(in.Data); err != nil {
			client.SendMessage(domain.NewErrorEvent(domain.MsgInvalidPayload))
			return
		}
		err = h.service.HandleCloseChat(ctx, client, ownerID)

	case domain.EventPing:
		client.SendMessage(domain.NewPongEvent())

	default:
		client.SendMessage(domain.NewErrorEvent(domain.MsgUnknownMessageType))
	}

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrAuthorization):
		evLogger.Debug().Err(err).Msg("event rejected")
	default:
		evLogger.Error().Err(err).Msg("event failed")
	}
}

// decodeString accepts a JSON string, or a missing/null payload as "".
func decodeString(data json.RawMessage) (string, error) {
	if len(data) == 0 || string(data) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	return s, nil
}
