// Package rpc implements the procedure pipeline: typed procedure definitions,
// access middleware, input validation, a registry and its HTTP transport.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/odyssey-erp/backoffice/internal/rbac"
)

// Kind distinguishes read-only queries from mutations.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Empty is the input of procedures that take no arguments.
type Empty struct{}

// HandlerFunc is the typed body of a procedure. p is nil for anonymous callers
// of public procedures.
type HandlerFunc[In, Out any] func(ctx context.Context, p *rbac.Principal, in In) (Out, error)

// Invoker is the untyped form every procedure is reduced to.
type Invoker func(ctx context.Context, p *rbac.Principal, raw json.RawMessage) (any, error)

// Procedure is a registered, callable unit.
type Procedure struct {
	Name   string
	Kind   Kind
	Access Access
	invoke Invoker
}

var namePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*\.[a-z][a-zA-Z0-9]*$`)

// Query defines a read-only procedure.
func Query[In, Out any](name string, access Access, h HandlerFunc[In, Out]) Procedure {
	return define(name, KindQuery, access, h)
}

// Mutation defines a state-changing procedure.
func Mutation[In, Out any](name string, access Access, h HandlerFunc[In, Out]) Procedure {
	return define(name, KindMutation, access, h)
}

func define[In, Out any](name string, kind Kind, access Access, h HandlerFunc[In, Out]) Procedure {
	if !namePattern.MatchString(name) {
		panic(fmt.Sprintf("rpc: invalid procedure name %q", name))
	}
	if h == nil {
		panic(fmt.Sprintf("rpc: nil handler for %s", name))
	}
	body := func(ctx context.Context, p *rbac.Principal, raw json.RawMessage) (any, error) {
		var in In
		if err := decodeInput(raw, &in); err != nil {
			return nil, err
		}
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return h(ctx, p, in)
	}
	return Procedure{
		Name:   name,
		Kind:   kind,
		Access: access,
		invoke: access.wrap(body),
	}
}

// Invoke runs the procedure's middleware chain and handler.
func (p Procedure) Invoke(ctx context.Context, principal *rbac.Principal, raw json.RawMessage) (any, error) {
	return p.invoke(ctx, principal, raw)
}
