package domain

import "encoding/json"

// Client -> server events.
const (
	EventJoinChat    = "joinChat"
	EventSendMessage = "sendMessage"
	EventCloseChat   = "closeChat"
	EventPing        = "ping"
)

// Server -> client events.
const (
	EventChatHistory = "chatHistory"
	EventMessage     = "message"
	EventChatClosed  = "chatClosed"
	EventUserStatus  = "userStatus"
	EventError       = "error"
	EventPong        = "pong"
)

// Presence statuses carried by userStatus.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// InboundEvent is the envelope of every client frame. Data is decoded per
// event type.
type InboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent is the envelope of every server frame.
type OutboundEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// SendMessagePayload is the data of sendMessage. User is honored for admin
// senders only.
type SendMessagePayload struct {
	User            string `json:"user,omitempty"`
	Message         string `json:"message"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewChatHistoryEvent(messages []ChatMessage) *OutboundEvent {
	if messages == nil {
		messages = []ChatMessage{}
	}
	return &OutboundEvent{Type: EventChatHistory, Data: messages}
}

func NewMessageEvent(msg ChatMessage) *OutboundEvent {
	return &OutboundEvent{Type: EventMessage, Data: msg}
}

func NewChatClosedEvent() *OutboundEvent {
	return &OutboundEvent{Type: EventChatClosed, Data: struct{}{}}
}

func NewUserStatusEvent(userID, status string) *OutboundEvent {
	return &OutboundEvent{Type: EventUserStatus, Data: UserStatusPayload{UserID: userID, Status: status}}
}

func NewErrorEvent(message string) *OutboundEvent {
	return &OutboundEvent{Type: EventError, Data: ErrorPayload{Message: message}}
}

func NewPongEvent() *OutboundEvent {
	return &OutboundEvent{Type: EventPong}
}
