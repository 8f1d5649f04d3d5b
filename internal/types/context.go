package types

import "context"

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxEventID       ContextKey = "ctx_event_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"
)

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

// GetEventID returns the webhook event id currently being processed, if any.
// Set by the event router so that repository logs can be correlated back to
// the delivery that caused a write.
func GetEventID(ctx context.Context) string {
	if eventID, ok := ctx.Value(CtxEventID).(string); ok {
		return eventID
	}
	return ""
}

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

// SetEventID sets the webhook event ID in the context
func SetEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, CtxEventID, eventID)
}
