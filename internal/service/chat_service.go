package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SavioJohny/delivery-website/internal/audit"
	"github.com/SavioJohny/delivery-website/internal/domain"
	"github.com/SavioJohny/delivery-website/internal/hub"
	"github.com/SavioJohny/delivery-website/internal/kafka"
	"github.com/SavioJohny/delivery-website/internal/presence"
	"github.com/SavioJohny/delivery-website/internal/store"
	"github.com/SavioJohny/delivery-website/pkg/log"
)

const defaultStoreTimeout = 5 * time.Second

type chatService struct {
	hub          *hub.Hub
	store        store.MessageStore
	presence     *presence.Tracker
	publisher    kafka.MessagePublisher
	archiver     TranscriptArchiver
	storeTimeout time.Duration
	locks        *roomLocks
}

func NewChatService(
	h *hub.Hub,
	messages store.MessageStore,
	tracker *presence.Tracker,
	publisher kafka.MessagePublisher,
	storeTimeout time.Duration,
	opts ...Option,
) ChatService {
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	s := &chatService{
		hub:          h,
		store:        messages,
		presence:     tracker,
		publisher:    publisher,
		storeTimeout: storeTimeout,
		locks:        newRoomLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storeContext detaches store calls from the connection: a client that
// disconnects mid-append must not cancel the write.
func (s *chatService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
}

func (s *chatService) HandleJoinChat(ctx context.Context, c *hub.Client, targetOwnerID string) error {
	l := log.Ctx(ctx)
	id := c.Identity()

	roomID := id.UserID
	if id.IsAdmin() {
		roomID = strings.TrimSpace(targetOwnerID)
		if roomID == "" {
			c.SendMessage(domain.NewErrorEvent(domain.MsgMissingChatOwner))
			return fmt.Errorf("%w: join without chat owner id", domain.ErrValidation)
		}
	}

	// Holding the room lock while joining and reading history means a
	// concurrent send lands either in the replay or in the live stream,
	// never both and never neither.
	unlock := s.locks.lock(roomID)
	defer unlock()

	if s.hub.JoinRoom(c, roomID) && id.IsAdmin() {
		l.Debug().Strs("rooms", c.Session.Rooms()).Msg("admin opened chat")
	}
	audit.Log(ctx, audit.ActionJoin, id.UserID, roomID, "joined chat")

	if !id.IsAdmin() && s.presence.MarkOnline(roomID) {
		s.hub.BroadcastAll(domain.NewUserStatusEvent(roomID, domain.StatusOnline))
		l.Info().Str(log.FieldRoomID, roomID).Msg("user online")
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	history, err := s.store.ListByOwner(storeCtx, roomID)
	if err != nil {
		c.SendMessage(domain.NewErrorEvent(domain.MsgHistoryFailed))
		return fmt.Errorf("%w: load history of %s: %w", domain.ErrPersistence, roomID, err)
	}

	return c.SendMessage(domain.NewChatHistoryEvent(history))
}

func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, payload domain.SendMessagePayload) error {
	l := log.Ctx(ctx)
	id := c.Identity()

	body := strings.TrimSpace(payload.Message)
	if body == "" {
		c.SendMessage(domain.NewErrorEvent(domain.MsgEmptyMessage))
		return fmt.Errorf("%w: empty message body", domain.ErrValidation)
	}

	ownerID := id.UserID
	if id.IsAdmin() {
		ownerID = strings.TrimSpace(payload.User)
		if ownerID == "" {
			c.SendMessage(domain.NewErrorEvent(domain.MsgMissingTargetUser))
			return fmt.Errorf("%w: admin message without target user", domain.ErrValidation)
		}
	}

	if !c.Allow() {
		c.SendMessage(domain.NewErrorEvent(domain.MsgTooManyMessages))
		return domain.ErrRateLimited
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	msg, err := s.store.Append(storeCtx, ownerID, id.Role, body)
	if err != nil {
		c.SendMessage(domain.NewErrorEvent(domain.MsgSendFailed))
		return fmt.Errorf("%w: append to %s: %w", domain.ErrPersistence, ownerID, err)
	}

	live := msg
	live.ClientMessageID = payload.ClientMessageID

	excludeAdmin := ""
	if id.IsAdmin() {
		excludeAdmin = c.ID
	}
	delivered, err := s.hub.FanOut(ownerID, domain.NewMessageEvent(live), excludeAdmin)
	if err != nil {
		return fmt.Errorf("fan out message %s: %w", msg.ID, err)
	}

	audit.LogWithDetail(ctx, audit.ActionSendMessage, id.UserID, ownerID, msg.ID, "message sent")
	l.Debug().Str(log.FieldRoomID, ownerID).Int("delivered", delivered).Msg("message delivered")

	if err := s.publisher.PublishMessage(storeCtx, msg); err != nil {
		l.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to publish chat message")
	}
	return nil
}

func (s *chatService) HandleCloseChat(ctx context.Context, c *hub.Client, ownerID string) error {
	l := log.Ctx(ctx)
	id := c.Identity()

	if !id.IsAdmin() {
		l.Warn().Str(log.FieldRoomID, ownerID).Msg("closeChat from non-admin ignored")
		audit.Log(ctx, audit.ActionCloseDenied, id.UserID, ownerID, "close chat denied")
		return fmt.Errorf("%w: closeChat requires admin", domain.ErrAuthorization)
	}

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		c.SendMessage(domain.NewErrorEvent(domain.MsgMissingChatOwner))
		return fmt.Errorf("%w: close without chat owner id", domain.ErrValidation)
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	s.hub.BroadcastToRoom(ownerID, domain.NewChatClosedEvent())
	if s.presence.Remove(ownerID) {
		s.hub.BroadcastAll(domain.NewUserStatusEvent(ownerID, domain.StatusOffline))
	}

	audit.Log(ctx, audit.ActionClose, id.UserID, ownerID, "chat closed")

	if s.archiver != nil {
		s.archiveTranscript(ctx, ownerID, id.UserID)
	}
	return nil
}

// archiveTranscript runs under the room lock so the snapshot matches what
// the room saw before chatClosed.
func (s *chatService) archiveTranscript(ctx context.Context, ownerID, closedBy string) {
	l := log.Ctx(ctx)

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	msgs, err := s.store.ListByOwner(storeCtx, ownerID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, ownerID).Msg("failed to load transcript for archive")
		return
	}
	key, err := s.archiver.Archive(storeCtx, ownerID, msgs, closedBy)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, ownerID).Msg("failed to archive transcript")
		return
	}
	l.Info().Str(log.FieldRoomID, ownerID).Str("key", key).Int("messages", len(msgs)).Msg("transcript archived")
}

func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	l := log.Ctx(ctx)
	id := c.Identity()

	audit.Log(ctx, audit.ActionDisconnect, id.UserID, c.ID, "client disconnected")

	if id.IsAdmin() {
		return nil
	}

	unlock := s.locks.lock(id.UserID)
	defer unlock()

	if s.hub.HasUserConnection(id.UserID, false) {
		return nil
	}

	if s.presence.Remove(id.UserID) {
		s.hub.BroadcastAll(domain.NewUserStatusEvent(id.UserID, domain.StatusOffline))
		l.Info().Str(log.FieldRoomID, id.UserID).Msg("user offline")
	}
	return nil
}

func (s *chatService) Stop() error {
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	return nil
}
