package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Observer receives one sample per call.
type Observer interface {
	ObserveProcedure(procedure, kind, code string, elapsed time.Duration)
}

// Registry maps procedure names to procedures.
type Registry struct {
	mu       sync.RWMutex
	procs    map[string]Procedure
	logger   *slog.Logger
	observer Observer
}

// NewRegistry constructs an empty registry. observer may be nil.
func NewRegistry(logger *slog.Logger, observer Observer) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{procs: make(map[string]Procedure), logger: logger, observer: observer}
}

// Register adds procedures. A duplicate name is a programming error and panics.
func (r *Registry) Register(procs ...Procedure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range procs {
		if p.invoke == nil {
			panic(fmt.Sprintf("rpc: procedure %q was not built with Query or Mutation", p.Name))
		}
		if _, exists := r.procs[p.Name]; exists {
			panic(fmt.Sprintf("rpc: duplicate procedure %q", p.Name))
		}
		r.procs[p.Name] = p
	}
}

// Lookup returns the named procedure.
func (r *Registry) Lookup(name string) (Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[name]
	return p, ok
}

// Names lists registered procedures in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named procedure for p. Every outcome is observed and failures
// are logged; internal failures at error level.
func (r *Registry) Call(ctx context.Context, name string, p *rbac.Principal, raw json.RawMessage) (any, error) {
	proc, ok := r.Lookup(name)
	if !ok {
		return nil, shared.NotFound("procedure " + name)
	}
	start := time.Now()
	out, err := proc.Invoke(ctx, p, raw)
	elapsed := time.Since(start)

	code := "OK"
	if err != nil {
		kind := shared.KindOf(err)
		code = string(kind)
		attrs := []any{
			slog.String("procedure", name),
			slog.String("code", code),
			slog.Duration("elapsed", elapsed),
		}
		if p != nil {
			attrs = append(attrs, slog.Int64("user_id", p.UserID))
		}
		switch kind {
		case shared.KindInternal:
			r.logger.ErrorContext(ctx, "procedure failed", append(attrs, slog.Any("error", err))...)
		case shared.KindForbidden, shared.KindUnauthenticated:
			r.logger.InfoContext(ctx, "procedure rejected", attrs...)
		default:
			r.logger.DebugContext(ctx, "procedure error", append(attrs, slog.String("message", err.Error()))...)
		}
	}
	if r.observer != nil {
		r.observer.ObserveProcedure(name, string(proc.Kind), code, elapsed)
	}
	return out, err
}
