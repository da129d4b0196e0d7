package interceptors

import "context"

type contextKey struct{ name string }

var (
	accountIDKey  = contextKey{"account_id"}
	sessionIDKey  = contextKey{"session_id"}
	activeRoleKey = contextKey{"active_role"}
)

// WithIdentity returns a context with account_id, session_id and active_role set.
// Handlers read these via GetAccountID, GetSessionID, GetActiveRole.
func WithIdentity(ctx context.Context, accountID, sessionID, activeRole string) context.Context {
	ctx = context.WithValue(ctx, accountIDKey, accountID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	ctx = context.WithValue(ctx, activeRoleKey, activeRole)
	return ctx
}

// GetAccountID returns the account_id from context and true if set; otherwise "", false.
func GetAccountID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// GetActiveRole returns the active_role from context and true if set; otherwise "", false.
func GetActiveRole(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(activeRoleKey).(string)
	return v, ok
}
