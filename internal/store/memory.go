package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SavioJohny/delivery-website/internal/domain"
)

// MemoryStore keeps transcripts in process memory. It is the default driver
// for local runs and the fixture for service tests.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[string][]domain.ChatMessage
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats: make(map[string][]domain.ChatMessage),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Append(ctx context.Context, ownerID string, sender domain.Role, body string) (domain.ChatMessage, error) {
	if ownerID == "" {
		return domain.ChatMessage{}, ErrEmptyOwner
	}
	if err := ctx.Err(); err != nil {
		return domain.ChatMessage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now()
	// Keep timestamps non-decreasing within a transcript so that sorting by
	// CreatedAt never reorders appends.
	if msgs := s.chats[ownerID]; len(msgs) > 0 {
		if last := msgs[len(msgs)-1].CreatedAt; createdAt.Before(last) {
			createdAt = last
		}
	}

	msg := domain.ChatMessage{
		ID:          uuid.NewString(),
		ChatOwnerID: ownerID,
		Body:        body,
		Sender:      sender,
		CreatedAt:   createdAt,
	}
	s.chats[ownerID] = append(s.chats[ownerID], msg)

	return msg, nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.chats[ownerID]
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) ListOwners(ctx context.Context) ([]domain.ChatSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ChatSummary, 0, len(s.chats))
	for owner, msgs := range s.chats {
		if len(msgs) == 0 {
			continue
		}
		out = append(out, domain.ChatSummary{
			ChatOwnerID:   owner,
			MessageCount:  int64(len(msgs)),
			LastMessageAt: msgs[len(msgs)-1].CreatedAt,
		})
	}
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// sortSummaries orders by LastMessageAt descending, then owner id.
func sortSummaries(out []domain.ChatSummary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].ChatOwnerID < out[j].ChatOwnerID
	})
}
