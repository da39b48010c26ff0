package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/SavioJohny/delivery-website/pkg/log"
)

// Hub owns every live connection: the client set, room membership keyed by
// chat owner id, the admin set and the per-user connection index.
type Hub struct {
	clients map[string]*Client            // clientID -> client
	rooms   map[string]map[string]*Client // roomID -> clientID -> client
	admins  map[string]*Client            // clientID -> admin client
	users   map[string]map[string]*Client // userID -> clientID -> client
	kick    chan *Client
	mu      sync.RWMutex
	pumps   sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		admins:  make(map[string]*Client),
		users:   make(map[string]map[string]*Client),
		kick:    make(chan *Client, 256),
	}
}

// Run drops slow consumers until ctx is canceled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.kick:
			if h.Unregister(client) {
				l := log.L()
				l.Warn().Str(log.FieldClientID, client.ID).Msg("send buffer full, client dropped")
			}

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Wait blocks until every pump started through Client.Start has returned,
// including the onClose callbacks, or until ctx ends.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if client.Session.IsAdmin() {
		h.admins[client.ID] = client
	}
	userID := client.Session.UserID()
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[string]*Client)
	}
	h.users[userID][client.ID] = client

	l := log.L()
	l.Debug().
		Str(log.FieldClientID, client.ID).
		Str(log.FieldUserID, userID).
		Str(log.FieldRole, string(client.Session.Identity().Role)).
		Msg("client registered")
}

// Unregister removes client from every index and closes its send channel.
// It reports false when the client was already gone.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.ID] != client {
		return false
	}

	for _, roomID := range client.Session.Rooms() {
		h.leaveLocked(client, roomID)
	}
	delete(h.clients, client.ID)
	delete(h.admins, client.ID)

	userID := client.Session.UserID()
	if conns, ok := h.users[userID]; ok {
		delete(conns, client.ID)
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
	close(client.Send)

	l := log.L()
	l.Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")
	return true
}

// JoinRoom adds client to roomID. Membership is additive: an admin who
// opens several chats stays in each of them until it disconnects. It
// reports whether the membership is new.
func (h *Hub) JoinRoom(client *Client, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.ID] != client {
		return false
	}

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	joined := client.Session.JoinRoom(roomID)

	if joined {
		l := log.L()
		l.Debug().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client joined room")
	}
	return joined
}

func (h *Hub) leaveLocked(client *Client, roomID string) {
	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	client.Session.LeaveRoom(roomID)
}

// BroadcastToRoom sends message to every connection joined to roomID.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, client := range h.rooms[roomID] {
		h.sendLocked(client, data)
		n++
	}
	return n, nil
}

// FanOut sends message to every connection in roomID and to every admin
// connection not in that room. The connection excludeAdminID (the sending
// admin) is skipped unless it is a member of the room. Each connection gets
// the message at most once.
func (h *Hub) FanOut(roomID string, message interface{}, excludeAdminID string) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[roomID]
	n := 0
	for _, client := range members {
		h.sendLocked(client, data)
		n++
	}
	for id, admin := range h.admins {
		if id == excludeAdminID {
			continue
		}
		if _, inRoom := members[id]; inRoom {
			continue
		}
		h.sendLocked(admin, data)
		n++
	}
	return n, nil
}

// BroadcastAll sends message to every registered connection.
func (h *Hub) BroadcastAll(message interface{}) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		h.sendLocked(client, data)
	}
	return len(h.clients), nil
}

// HasUserConnection reports whether userID still has a registered
// connection with the given role.
func (h *Hub) HasUserConnection(userID string, admin bool) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.users[userID] {
		if c.Session.IsAdmin() == admin {
			return true
		}
	}
	return false
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) AdminCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.admins)
}

func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) deliver(client *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.clients[client.ID] != client {
		return
	}
	h.sendLocked(client, data)
}

// sendLocked must run under h.mu (read or write): Unregister closes Send
// under the write lock.
func (h *Hub) sendLocked(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		select {
		case h.kick <- client:
		default:
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}

	l := log.L()
	l.Info().Int("clients", len(clients)).Msg("hub stopped")
}
