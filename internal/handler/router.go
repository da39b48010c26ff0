package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/internal/hub"
	"github.com/SavioJohny/delivery-website/pkg/log"
	"github.com/SavioJohny/delivery-website/pkg/middleware"
	"github.com/SavioJohny/delivery-website/pkg/response"
)

// NewRouter mounts the gin REST API under /api/v1/chat and serves the
// WebSocket endpoint, presence and health from the mux root.
func NewRouter(
	logger zerolog.Logger,
	h *hub.Hub,
	auth *middleware.AuthMiddleware,
	ws *WSHandler,
	api *HTTPHandler,
	presenceH *PresenceHandler,
) http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), log.GinMiddleware(logger))
	api.RegisterRoutes(engine)

	root := mux.NewRouter()
	root.PathPrefix("/api/v1/chat").Handler(engine)

	plain := root.NewRoute().Subrouter()
	plain.Use(log.HTTPMiddleware(logger))
	plain.HandleFunc("/chat/ws", ws.HandleWebSocket).Methods(http.MethodGet)
	plain.Handle("/api/v1/presence", auth.HTTP(string(domain.RoleAdmin))(http.HandlerFunc(presenceH.GetPresence))).
		Methods(http.MethodGet)
	plain.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, response.Response{
			Success: true,
			Data: map[string]interface{}{
				"status":  "ok",
				"clients": h.ClientCount(),
				"admins":  h.AdminCount(),
			},
		})
	}).Methods(http.MethodGet)

	return root
}
