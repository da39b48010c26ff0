package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SavioJohny/delivery-website/internal/archive"
	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/internal/presence"
	"github.com/SavioJohny/delivery-website/internal/store"
	"github.com/SavioJohny/delivery-website/pkg/log"
	"github.com/SavioJohny/delivery-website/pkg/middleware"
	"github.com/SavioJohny/delivery-website/pkg/response"
	"github.com/SavioJohny/delivery-website/pkg/storage"
)

// HTTPHandler serves transcripts and the admin chat list over REST.
type HTTPHandler struct {
	store    store.MessageStore
	presence *presence.Tracker
	auth     *middleware.AuthMiddleware
	archives *archive.Archiver
}

// NewHTTPHandler creates the REST handler. archives may be nil when
// transcript archiving is disabled.
func NewHTTPHandler(messages store.MessageStore, tracker *presence.Tracker, auth *middleware.AuthMiddleware, archives *archive.Archiver) *HTTPHandler {
	return &HTTPHandler{
		store:    messages,
		presence: tracker,
		auth:     auth,
		archives: archives,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	chat := r.Group("/api/v1/chat", h.auth.RequireAuth())
	{
		chat.GET("", h.GetOwnTranscript)

		admin := chat.Group("", middleware.RequireRole(string(domain.RoleAdmin)))
		admin.GET("/admin", h.ListChats)
		admin.GET("/:owner_id/messages", h.GetTranscript)
		if h.archives != nil {
			admin.GET("/:owner_id/archives", h.ListArchives)
			admin.GET("/:owner_id/archives/:name", h.GetArchive)
		}
	}
}

// GetOwnTranscript handles GET /api/v1/chat
func (h *HTTPHandler) GetOwnTranscript(c *gin.Context) {
	h.writeTranscript(c, middleware.GetUserID(c))
}

// GetTranscript handles GET /api/v1/chat/:owner_id/messages
func (h *HTTPHandler) GetTranscript(c *gin.Context) {
	ownerID := c.Param("owner_id")
	if ownerID == "" {
		response.BadRequest(c, "owner_id is required")
		return
	}
	h.writeTranscript(c, ownerID)
}

func (h *HTTPHandler) writeTranscript(c *gin.Context, ownerID string) {
	msgs, err := h.store.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomID, ownerID).Msg("failed to load transcript")
		response.InternalError(c, domain.MsgHistoryFailed)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	response.Success(c, msgs)
}

// ListChats handles GET /api/v1/chat/admin: every chat with messages plus
// online users that have not written yet.
func (h *HTTPHandler) ListChats(c *gin.Context) {
	summaries, err := h.store.ListOwners(c.Request.Context())
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to list chats")
		response.InternalError(c, "Failed to list chats")
		return
	}

	seen := make(map[string]struct{}, len(summaries))
	for i := range summaries {
		summaries[i].Online = h.presence.IsOnline(summaries[i].ChatOwnerID)
		seen[summaries[i].ChatOwnerID] = struct{}{}
	}
	for _, e := range h.presence.List() {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		summaries = append(summaries, domain.ChatSummary{ChatOwnerID: e.UserID, Online: true})
	}

	response.Success(c, summaries)
}

// ListArchives handles GET /api/v1/chat/:owner_id/archives
func (h *HTTPHandler) ListArchives(c *gin.Context) {
	objs, err := h.archives.List(c.Request.Context(), c.Param("owner_id"))
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomID, c.Param("owner_id")).Msg("failed to list archives")
		response.InternalError(c, "Failed to list archives")
		return
	}
	response.Success(c, objs)
}

// GetArchive handles GET /api/v1/chat/:owner_id/archives/:name
func (h *HTTPHandler) GetArchive(c *gin.Context) {
	ownerID, name := c.Param("owner_id"), c.Param("name")
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		response.BadRequest(c, "invalid archive name")
		return
	}

	objs, err := h.archives.List(c.Request.Context(), ownerID)
	if err != nil {
		response.InternalError(c, "Failed to load archive")
		return
	}
	key := ""
	for _, o := range objs {
		if strings.HasSuffix(o.Key, "/"+name) {
			key = o.Key
			break
		}
	}
	if key == "" {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "archive not found")
		return
	}

	doc, err := h.archives.Load(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "archive not found")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str("key", key).Msg("failed to load archive")
		response.InternalError(c, "Failed to load archive")
		return
	}
	response.Success(c, doc)
}
