package domain

import "time"

// ChatMessage is one entry of a transcript. Every message of a chat, no
// matter who wrote it, is filed under the end user's id (ChatOwnerID).
type ChatMessage struct {
	ID          string    `json:"id"`
	ChatOwnerID string    `json:"chatOwnerId"`
	Body        string    `json:"body"`
	Sender      Role      `json:"sender"`
	CreatedAt   time.Time `json:"createdAt"`

	// ClientMessageID is echoed on the live message event only.
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

// ChatSummary describes one chat known to the store.
type ChatSummary struct {
	ChatOwnerID   string    `json:"chatOwnerId"`
	MessageCount  int64     `json:"messageCount"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	Online        bool      `json:"online"`
}
