package domain

import "errors"

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrValidation     = errors.New("validation failed")
	ErrPersistence    = errors.New("persistence failed")
	ErrAuthorization  = errors.New("not authorized")
	ErrRateLimited    = errors.New("rate limited")
)

// Messages surfaced to clients in scoped error events.
const (
	MsgEmptyMessage       = "Message cannot be empty"
	MsgHistoryFailed      = "Failed to load chat history"
	MsgSendFailed         = "Failed to send message"
	MsgTooManyMessages    = "Too many messages"
	MsgMissingChatOwner   = "Chat owner id is required"
	MsgMissingTargetUser  = "Target user is required"
	MsgInvalidFormat      = "Invalid message format"
	MsgInvalidPayload     = "Invalid payload"
	MsgUnknownMessageType = "Unknown message type"
)
