package handler

import (
	"net/http"

	"github.com/SavioJohny/delivery-website/internal/presence"
	"github.com/SavioJohny/delivery-website/pkg/response"
)

// PresenceHandler exposes the presence table to the admin dashboard.
type PresenceHandler struct {
	presence *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{presence: tracker}
}

type PresenceResponse struct {
	Online []presence.Entry `json:"online"`
	Count  int              `json:"count"`
}

// GetPresence handles GET /api/v1/presence
func (h *PresenceHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	online := h.presence.List()
	response.WriteJSON(w, http.StatusOK, response.Response{
		Success: true,
		Data:    PresenceResponse{Online: online, Count: len(online)},
	})
}
