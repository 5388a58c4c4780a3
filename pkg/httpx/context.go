package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyUserEmail ctxKey = "user_email"
)

// UserIDFromContext returns the authenticated user id injected by
// AuthnMiddleware, or "" when the request is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// UserEmailFromContext returns the authenticated user's email claim, if any.
func UserEmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserEmail).(string); ok {
		return v
	}
	return ""
}
