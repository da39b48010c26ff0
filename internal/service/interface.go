package service

import (
	"context"

	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/internal/hub"
)

// ChatService runs the per-event logic of the relay. Every handler reports
// client-visible failures to the originating connection itself and returns
// the underlying error for logging.
type ChatService interface {
	HandleJoinChat(ctx context.Context, client *hub.Client, targetOwnerID string) error
	HandleSendMessage(ctx context.Context, client *hub.Client, payload domain.SendMessagePayload) error
	HandleCloseChat(ctx context.Context, client *hub.Client, ownerID string) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
	Stop() error
}

// TranscriptArchiver snapshots a chat when an admin closes it.
type TranscriptArchiver interface {
	Archive(ctx context.Context, ownerID string, msgs []domain.ChatMessage, closedBy string) (string, error)
}

type Option func(*chatService)

// WithArchiver enables transcript snapshots on closeChat. Archive failures
// are logged and never fail the close.
func WithArchiver(a TranscriptArchiver) Option {
	return func(s *chatService) {
		s.archiver = a
	}
}
