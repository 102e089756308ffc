package httpx

import (
	"context"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
)

type (
	sessionKey  struct{}
	clientIDKey struct{}
)

// withSession attaches the session resolved by RequireAuth/RequireRole. Nil leaves ctx as is.
func withSession(ctx context.Context, s *domainauth.Session) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached by the auth middleware, if any.
func SessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*domainauth.Session)
	return s, ok && s != nil
}

func withClientID(ctx context.Context, clientID string) context.Context {
	if clientID == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// ClientIDFromContext returns the client id set by the ClientID middleware, or "".
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}
