package store

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/pkg/log"
)

const (
	ownerLockStripes = 64
	fillTimeout      = 5 * time.Second
	cacheSetTimeout  = 2 * time.Second
)

// CachedStore puts a read-through transcript cache in front of another
// MessageStore. Appends invalidate the owner's entry. Fills and
// invalidations for one owner are serialized so a slow fill never writes a
// transcript that misses an acknowledged append.
type CachedStore struct {
	inner MessageStore
	cache TranscriptCache
	ttl   time.Duration
	sf    singleflight.Group
	locks [ownerLockStripes]sync.Mutex
}

func NewCachedStore(inner MessageStore, cache TranscriptCache, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, cache: cache, ttl: ttl}
}

func (s *CachedStore) lockFor(ownerID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(ownerID))
	return &s.locks[h.Sum32()%ownerLockStripes]
}

func (s *CachedStore) Append(ctx context.Context, ownerID string, sender domain.Role, body string) (domain.ChatMessage, error) {
	mu := s.lockFor(ownerID)
	mu.Lock()
	defer mu.Unlock()

	msg, err := s.inner.Append(ctx, ownerID, sender, body)
	if err != nil {
		return msg, err
	}

	if err := s.cache.Delete(ctx, ownerID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, ownerID).Msg("cache invalidate error")
	}
	return msg, nil
}

func (s *CachedStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.ChatMessage, error) {
	cached, err := s.cache.Get(ctx, ownerID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, ownerID).Msg("cache get error")
	}

	// The shared fill must not inherit the cancellation of whichever caller
	// happened to start it. Each caller still stops waiting on its own ctx.
	fillCtx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(ownerID, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(fillCtx, fillTimeout)
		defer cancel()
		return s.fill(fctx, ownerID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// Callers own their slice; singleflight shares one result.
	shared := res.Val.([]domain.ChatMessage)
	out := make([]domain.ChatMessage, len(shared))
	copy(out, shared)
	return out, nil
}

func (s *CachedStore) fill(ctx context.Context, ownerID string) ([]domain.ChatMessage, error) {
	mu := s.lockFor(ownerID)
	mu.Lock()
	defer mu.Unlock()

	messages, err := s.inner.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}

	setCtx, cancel := context.WithTimeout(ctx, cacheSetTimeout)
	defer cancel()
	if err := s.cache.Set(setCtx, ownerID, messages, s.ttl); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, ownerID).Msg("cache set error")
	}
	return messages, nil
}

// ListOwners is not cached; it backs an admin view only.
func (s *CachedStore) ListOwners(ctx context.Context) ([]domain.ChatSummary, error) {
	return s.inner.ListOwners(ctx)
}

func (s *CachedStore) Close() error {
	cacheErr := s.cache.Close()
	if err := s.inner.Close(); err != nil {
		return err
	}
	return cacheErr
}
