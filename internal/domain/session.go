package domain

import (
	"sort"
	"sync"
	"time"
)

// Session is the per-connection state. Identity is fixed at handshake; the
// joined rooms and activity timestamp change afterwards. A user session only
// ever holds its own room, an admin may hold several.
type Session struct {
	ID       string
	identity Identity

	mu           sync.RWMutex
	rooms        map[string]struct{}
	lastActiveAt time.Time
}

func NewSession(id string, identity Identity) *Session {
	return &Session{
		ID:           id,
		identity:     identity,
		rooms:        make(map[string]struct{}),
		lastActiveAt: time.Now(),
	}
}

func (s *Session) Identity() Identity {
	return s.identity
}

func (s *Session) UserID() string {
	return s.identity.UserID
}

func (s *Session) IsAdmin() bool {
	return s.identity.IsAdmin()
}

// JoinRoom adds roomID and reports whether it was new.
func (s *Session) JoinRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
	if _, ok := s.rooms[roomID]; ok {
		return false
	}
	s.rooms[roomID] = struct{}{}
	return true
}

func (s *Session) LeaveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// Rooms returns the joined rooms in lexical order.
func (s *Session) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Session) IsInRoom(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

func (s *Session) LastActiveAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActiveAt
}
