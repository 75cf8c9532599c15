package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

func TestStatusFor(t *testing.T) {
	cases := map[shared.Kind]int{
		shared.KindUnauthenticated:    http.StatusUnauthorized,
		shared.KindForbidden:          http.StatusForbidden,
		shared.KindValidation:         http.StatusBadRequest,
		shared.KindNotFound:           http.StatusNotFound,
		shared.KindConflict:           http.StatusConflict,
		shared.KindPreconditionFailed: http.StatusPreconditionFailed,
		shared.KindInternal:           http.StatusInternalServerError,
	}
	for kind, status := range cases {
		require.Equal(t, status, StatusFor(kind), kind)
	}
}

func TestRespondErrorHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("dial tcp 10.0.0.1:5432: refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestRespondErrorCarriesFieldsAndPermission(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.MissingPermission("sales:create"))

	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, shared.KindForbidden, body.Error.Code)
	require.Equal(t, "sales:create", body.Error.Permission)

	rec = httptest.NewRecorder()
	RespondError(rec, shared.FieldError("amount", "must be greater than zero"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "must be greater than zero", body.Error.Fields["amount"])
}
