package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const maxBodyBytes = 1 << 20

type httpKey struct{}

type httpExchange struct {
	w http.ResponseWriter
	r *http.Request
}

// ResponseWriter returns the HTTP response of the current call, for procedures
// that manage cookies. It is nil outside the HTTP transport.
func ResponseWriter(ctx context.Context) http.ResponseWriter {
	if ex, ok := ctx.Value(httpKey{}).(httpExchange); ok {
		return ex.w
	}
	return nil
}

// Request returns the HTTP request of the current call, or nil.
func Request(ctx context.Context) *http.Request {
	if ex, ok := ctx.Value(httpKey{}).(httpExchange); ok {
		return ex.r
	}
	return nil
}

// Routes mounts POST /{procedure} for every procedure and GET /{procedure}?input=
// for queries.
func (r *Registry) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/{procedure}", r.serve)
	router.Get("/{procedure}", r.serve)
	return router
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "procedure")
	proc, ok := r.Lookup(name)
	if !ok {
		httpx.RespondError(w, shared.NotFound("procedure "+name))
		return
	}

	var raw json.RawMessage
	switch req.Method {
	case http.MethodGet:
		if proc.Kind != KindQuery {
			w.Header().Set("Allow", http.MethodPost)
			httpx.RespondError(w, shared.Validation(name+" is a mutation and requires POST", nil))
			return
		}
		if input := req.URL.Query().Get("input"); input != "" {
			raw = json.RawMessage(input)
		}
	default:
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpx.RespondError(w, shared.Validation("request body too large", nil))
				return
			}
			httpx.RespondError(w, shared.Validation("unreadable request body", nil))
			return
		}
		raw = body
	}

	ctx := context.WithValue(req.Context(), httpKey{}, httpExchange{w: w, r: req})
	out, err := r.Call(ctx, name, rbac.PrincipalFromContext(req.Context()), raw)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Result(w, out)
}
