package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/pkg/log"
)

const cassandraSchema = `
CREATE TABLE IF NOT EXISTS messages_by_owner (
	chat_owner_id text,
	message_id    timeuuid,
	sender        text,
	body          text,
	created_at    timestamp,
	PRIMARY KEY ((chat_owner_id), message_id)
) WITH CLUSTERING ORDER BY (message_id ASC)`

// CassandraStore files messages in one partition per chat owner, clustered
// by a time-based UUID so partition order is transcript order.
type CassandraStore struct {
	session *gocql.Session
}

// NewCassandraStore wraps an open session. With ensureSchema the table is
// created when missing.
func NewCassandraStore(session *gocql.Session, ensureSchema bool) (*CassandraStore, error) {
	if ensureSchema {
		if err := session.Query(cassandraSchema).Exec(); err != nil {
			return nil, fmt.Errorf("failed to create messages_by_owner: %w", err)
		}
	}
	return &CassandraStore{session: session}, nil
}

func (s *CassandraStore) Append(ctx context.Context, ownerID string, sender domain.Role, body string) (domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	if ownerID == "" {
		return domain.ChatMessage{}, ErrEmptyOwner
	}

	id := gocql.TimeUUID()
	createdAt := id.Time().UTC().Truncate(time.Millisecond)

	err := s.session.Query(
		`INSERT INTO messages_by_owner (chat_owner_id, message_id, sender, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		ownerID, id, string(sender), body, createdAt,
	).WithContext(ctx).Exec()
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, ownerID).Msg("failed to insert chat message")
		return domain.ChatMessage{}, fmt.Errorf("failed to insert message: %w", err)
	}

	return domain.ChatMessage{
		ID:          id.String(),
		ChatOwnerID: ownerID,
		Body:        body,
		Sender:      sender,
		CreatedAt:   createdAt,
	}, nil
}

func (s *CassandraStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.ChatMessage, error) {
	iter := s.session.Query(
		`SELECT message_id, sender, body, created_at FROM messages_by_owner WHERE chat_owner_id = ? ORDER BY message_id ASC`,
		ownerID,
	).WithContext(ctx).Iter()

	out := []domain.ChatMessage{}
	var (
		id        gocql.UUID
		sender    string
		body      string
		createdAt time.Time
	)
	for iter.Scan(&id, &sender, &body, &createdAt) {
		out = append(out, domain.ChatMessage{
			ID:          id.String(),
			ChatOwnerID: ownerID,
			Body:        body,
			Sender:      domain.Role(sender),
			CreatedAt:   createdAt.UTC(),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return out, nil
}

// ListOwners relies on GROUP BY over the partition key (Cassandra 3.10+).
func (s *CassandraStore) ListOwners(ctx context.Context) ([]domain.ChatSummary, error) {
	iter := s.session.Query(
		`SELECT chat_owner_id, COUNT(*), MAX(created_at) FROM messages_by_owner GROUP BY chat_owner_id`,
	).WithContext(ctx).Iter()

	out := []domain.ChatSummary{}
	var (
		owner  string
		count  int64
		lastAt time.Time
	)
	for iter.Scan(&owner, &count, &lastAt) {
		out = append(out, domain.ChatSummary{
			ChatOwnerID:   owner,
			MessageCount:  count,
			LastMessageAt: lastAt.UTC(),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to aggregate chats: %w", err)
	}
	sortSummaries(out)
	return out, nil
}

func (s *CassandraStore) Close() error {
	s.session.Close()
	return nil
}
