package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/pkg/log"
)

// MessageModel is the GORM row for a chat message. Seq is the insertion
// order and the only ordering key of a transcript.
type MessageModel struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement;index:idx_chat_owner_seq,priority:2"`
	ID          string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	ChatOwnerID string    `gorm:"type:varchar(64);not null;index:idx_chat_owner_seq,priority:1"`
	Body        string    `gorm:"type:text;not null"`
	Sender      string    `gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (MessageModel) TableName() string {
	return "chat_messages"
}

func (m *MessageModel) ToDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:          m.ID,
		ChatOwnerID: m.ChatOwnerID,
		Body:        m.Body,
		Sender:      domain.Role(m.Sender),
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

// GormStore implements MessageStore on postgres, mysql or sqlite.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates the store and migrates its table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&MessageModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chat_messages: %w", err)
	}
	return &GormStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *GormStore) Append(ctx context.Context, ownerID string, sender domain.Role, body string) (domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	if ownerID == "" {
		return domain.ChatMessage{}, ErrEmptyOwner
	}

	createdAt, err := s.nextTimestamp(ctx, ownerID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	model := &MessageModel{
		ID:          uuid.NewString(),
		ChatOwnerID: ownerID,
		Body:        body,
		Sender:      string(sender),
		CreatedAt:   createdAt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, ownerID).Msg("failed to insert chat message")
		return domain.ChatMessage{}, fmt.Errorf("failed to insert message: %w", err)
	}

	l.Debug().Str(log.FieldRoomID, ownerID).Str("message_id", model.ID).Msg("chat message inserted")
	return model.ToDomain(), nil
}

// nextTimestamp never goes below the owner's latest row, so CreatedAt stays
// non-decreasing along Seq when the wall clock steps back.
func (s *GormStore) nextTimestamp(ctx context.Context, ownerID string) (time.Time, error) {
	now := s.now()

	var last []MessageModel
	err := s.db.WithContext(ctx).
		Select("created_at").
		Where("chat_owner_id = ?", ownerID).
		Order("seq DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest message: %w", err)
	}
	if len(last) == 1 {
		if prev := last[0].CreatedAt.UTC(); now.Before(prev) {
			return prev, nil
		}
	}
	return now, nil
}

func (s *GormStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.ChatMessage, error) {
	var models []MessageModel
	err := s.db.WithContext(ctx).
		Where("chat_owner_id = ?", ownerID).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	out := make([]domain.ChatMessage, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

type ownerAggregate struct {
	ChatOwnerID  string
	MessageCount int64
	LastSeq      uint64
}

// ListOwners aggregates per owner, then loads the latest row of each chat to
// read its timestamp. MAX() over a timestamp column does not scan portably
// across the three drivers.
func (s *GormStore) ListOwners(ctx context.Context) ([]domain.ChatSummary, error) {
	var aggs []ownerAggregate
	err := s.db.WithContext(ctx).
		Model(&MessageModel{}).
		Select("chat_owner_id, COUNT(*) AS message_count, MAX(seq) AS last_seq").
		Group("chat_owner_id").
		Scan(&aggs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate chats: %w", err)
	}
	if len(aggs) == 0 {
		return []domain.ChatSummary{}, nil
	}

	seqs := make([]uint64, len(aggs))
	for i, a := range aggs {
		seqs[i] = a.LastSeq
	}

	var latest []MessageModel
	if err := s.db.WithContext(ctx).Where("seq IN ?", seqs).Find(&latest).Error; err != nil {
		return nil, fmt.Errorf("failed to load latest messages: %w", err)
	}
	lastAt := make(map[string]time.Time, len(latest))
	for _, m := range latest {
		lastAt[m.ChatOwnerID] = m.CreatedAt.UTC()
	}

	out := make([]domain.ChatSummary, len(aggs))
	for i, a := range aggs {
		out[i] = domain.ChatSummary{
			ChatOwnerID:   a.ChatOwnerID,
			MessageCount:  a.MessageCount,
			LastMessageAt: lastAt[a.ChatOwnerID],
		}
	}
	sortSummaries(out)
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
