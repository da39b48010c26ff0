package audit

import (
	"context"

	"github.com/SavioJohny/delivery-website/pkg/log"
)

// Audit actions of the chat relay.
const (
	ActionAuthFailed  = "chat.auth_failed"
	ActionJoin        = "chat.join"
	ActionSendMessage = "chat.send_message"
	ActionClose       = "chat.close"
	ActionCloseDenied = "chat.close_denied"
	ActionDisconnect  = "chat.disconnect"
)

const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit entry via the context logger.
func Log(ctx context.Context, action, userID, targetID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail is Log with a free-form detail field.
func LogWithDetail(ctx context.Context, action, userID, targetID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Str(FieldDetail, detail).
		Msg(msg)
}
