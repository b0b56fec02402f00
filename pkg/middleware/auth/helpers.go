package auth

import "context"

func (m *Middleware) GetIdentity(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityCtxKey).(Identity); ok {
		return id
	}
	return Identity{}
}

func (m *Middleware) IsAuthenticated(ctx context.Context) bool {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	return ok && id.Subject != ""
}

// IdentityFromContext reads the identity without needing the middleware,
// for components that only consume it (logging, rate limiting).
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityCtxKey).(Identity); ok {
		return id
	}
	return Identity{}
}
