package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/pkg/storage"
)

const (
	defaultPrefix = "transcripts"
	contentType   = "application/json"
)

var ErrEmptyOwner = errors.New("chat owner id is empty")

type Config struct {
	Enabled bool
	Prefix  string
	Storage storage.Config
}

// Transcript is the document written when an admin closes a chat.
type Transcript struct {
	ChatOwnerID string               `json:"chatOwnerId"`
	ClosedBy    string               `json:"closedBy"`
	ClosedAt    time.Time            `json:"closedAt"`
	Messages    []domain.ChatMessage `json:"messages"`
}

// Archiver snapshots closed chats into object storage under
// <prefix>/<owner>/<closedAt>.json.
type Archiver struct {
	storage storage.Storage
	prefix  string
	now     func() time.Time
}

func NewArchiver(s storage.Storage, prefix string) *Archiver {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Archiver{storage: s, prefix: prefix, now: time.Now}
}

// Archive writes a snapshot and returns its key.
func (a *Archiver) Archive(ctx context.Context, ownerID string, msgs []domain.ChatMessage, closedBy string) (string, error) {
	if ownerID == "" {
		return "", ErrEmptyOwner
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}

	closedAt := a.now().UTC()
	doc := Transcript{
		ChatOwnerID: ownerID,
		ClosedBy:    closedBy,
		ClosedAt:    closedAt,
		Messages:    msgs,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}

	key := path.Join(a.prefix, ownerID, closedAt.Format("20060102T150405.000000000Z")+".json")
	if err := a.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return key, nil
}

// List returns the snapshots of one chat, oldest first.
func (a *Archiver) List(ctx context.Context, ownerID string) ([]storage.ObjectInfo, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}
	return a.storage.List(ctx, path.Join(a.prefix, ownerID)+"/")
}

// Load reads one snapshot back.
func (a *Archiver) Load(ctx context.Context, key string) (*Transcript, error) {
	rc, err := a.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc Transcript
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode transcript %s: %w", key, err)
	}
	return &doc, nil
}
