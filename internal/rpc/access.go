package rpc

import (
	"context"
	"encoding/json"

	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type accessMode int

const (
	modePublic accessMode = iota
	modeAuthenticated
	modePermission
)

// Access is the single access mode a procedure declares.
type Access struct {
	mode       accessMode
	permission rbac.Permission
}

// Public procedures run for anonymous callers too.
func Public() Access { return Access{mode: modePublic} }

// Authenticated procedures need any resolved principal.
func Authenticated() Access { return Access{mode: modeAuthenticated} }

// Permission procedures need a principal holding code.
func Permission(code rbac.Permission) Access {
	if !code.Valid() {
		panic("rpc: unknown permission " + string(code))
	}
	return Access{mode: modePermission, permission: code}
}

// Required returns the gating permission, if any.
func (a Access) Required() (rbac.Permission, bool) {
	return a.permission, a.mode == modePermission
}

func (a Access) String() string {
	switch a.mode {
	case modeAuthenticated:
		return "authenticated"
	case modePermission:
		return "permission:" + string(a.permission)
	default:
		return "public"
	}
}

func (a Access) wrap(next Invoker) Invoker {
	switch a.mode {
	case modeAuthenticated:
		return RequireAuth(next)
	case modePermission:
		return RequirePermission(a.permission)(next)
	default:
		return next
	}
}

// Middleware decorates an Invoker.
type Middleware func(Invoker) Invoker

// RequireAuth rejects calls without a principal before next runs.
func RequireAuth(next Invoker) Invoker {
	return func(ctx context.Context, p *rbac.Principal, raw json.RawMessage) (any, error) {
		if p == nil {
			return nil, shared.Unauthenticated("")
		}
		return next(ctx, p, raw)
	}
}

// RequirePermission authenticates, then checks that the principal holds code.
func RequirePermission(code rbac.Permission) Middleware {
	return func(next Invoker) Invoker {
		return RequireAuth(func(ctx context.Context, p *rbac.Principal, raw json.RawMessage) (any, error) {
			if !p.Has(code) {
				return nil, shared.MissingPermission(string(code))
			}
			return next(ctx, p, raw)
		})
	}
}
