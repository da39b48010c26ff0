package store

import (
	"context"
	"errors"

	"github.com/SavioJohny/delivery-website/internal/domain"
)

var ErrEmptyOwner = errors.New("chat owner id is required")

// MessageStore is the durable append-only log of chat messages, keyed by the
// end user's id. ListByOwner returns messages ordered by CreatedAt ascending,
// ties in insertion order.
type MessageStore interface {
	Append(ctx context.Context, ownerID string, sender domain.Role, body string) (domain.ChatMessage, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ChatMessage, error)
	// ListOwners returns one summary per chat, most recently active first.
	// Online is left false; presence is not the store's concern.
	ListOwners(ctx context.Context) ([]domain.ChatSummary, error)
	Close() error
}
