package rbac

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// SessionLookup finds the session behind a token.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (shared.Session, bool, error)
}

// PrincipalLoader reads the user, role and permission codes for userID.
// It returns nil when the user is missing or inactive.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID int64) (*Principal, error)
}

// Resolver turns a session token into a Principal.
type Resolver struct {
	sessions SessionLookup
	loader   PrincipalLoader
}

// NewResolver constructs a Resolver.
func NewResolver(sessions SessionLookup, loader PrincipalLoader) *Resolver {
	return &Resolver{sessions: sessions, loader: loader}
}

// Resolve returns (nil, false, nil) for an empty, unknown or expired token and
// for users that can no longer sign in. Store failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	sess, ok, err := r.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, false, fmt.Errorf("rbac: lookup session: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	p, err := r.loader.LoadPrincipal(ctx, sess.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("rbac: load principal: %w", err)
	}
	if p == nil {
		return nil, false, nil
	}
	return p, true, nil
}
