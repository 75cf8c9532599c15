// Package httpx writes the JSON envelopes shared by every HTTP endpoint.
package httpx

import (
	"net/http"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// ErrorBody is the serialised form of a shared.Error.
type ErrorBody struct {
	Code       shared.Kind       `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	Permission string            `json:"permission,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindUnauthenticated:
		return http.StatusUnauthorized
	case shared.KindForbidden:
		return http.StatusForbidden
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// BodyFor converts err into the client-visible body. Internal causes are hidden.
func BodyFor(err error) ErrorBody {
	e := shared.AsError(err)
	body := ErrorBody{Code: e.Kind, Message: e.Message, Fields: e.Fields, Permission: e.Permission}
	if e.Kind == shared.KindInternal {
		body.Message = "internal error"
		body.Fields = nil
	}
	return body
}

// RespondError writes {"error": {...}} with the mapped status.
func RespondError(w http.ResponseWriter, err error) {
	body := BodyFor(err)
	JSON(w, StatusFor(body.Code), map[string]ErrorBody{"error": body})
}
