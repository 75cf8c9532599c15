package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// TokenSource extracts the session token from a request.
type TokenSource interface {
	TokenFromRequest(r *http.Request) string
}

// Middleware resolves the request's session into a Principal.
type Middleware struct {
	Resolver *Resolver
	Tokens   TokenSource
	Logger   *slog.Logger
}

// Resolve places the principal (if any) and the session token into the
// request context. Requests without a valid session continue anonymously;
// procedures decide whether that is acceptable.
func (m Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.Tokens.TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, ok, err := m.Resolver.Resolve(r.Context(), token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("rbac resolve principal", slog.Any("error", err))
			}
			httpx.RespondError(w, shared.Internal(err))
			return
		}
		ctx := r.Context()
		if ok {
			ctx = WithPrincipal(ctx, p)
			ctx = shared.ContextWithSession(ctx, shared.Session{Token: token, UserID: p.UserID})
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
