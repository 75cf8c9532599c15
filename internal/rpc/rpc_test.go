package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/shared"
	_ "github.com/odyssey-erp/backoffice/internal/testing/guard"
)

type paymentInput struct {
	InvoiceID int64           `json:"invoiceId" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Method    string          `json:"method" validate:"required,oneof=cash bank card"`
	Lines     []lineInput     `json:"lines" validate:"dive"`
}

type lineInput struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
}

type recordingObserver struct {
	mu    sync.Mutex
	codes []string
}

func (o *recordingObserver) ObserveProcedure(procedure, kind, code string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes = append(o.codes, procedure+"/"+kind+"/"+code)
}

func principal(perms ...rbac.Permission) *rbac.Principal {
	return rbac.NewPrincipal(1, "Ana", "ana@example.com", 1, "Clerk", perms)
}

func TestPermissionGateNeverRunsHandler(t *testing.T) {
	calls := 0
	proc := Mutation("sales.recordPayment", Permission(rbac.PermSalesCreate),
		func(ctx context.Context, p *rbac.Principal, in paymentInput) (string, error) {
			calls++
			return "ok", nil
		})
	raw := json.RawMessage(`{"invoiceId":1,"amount":"10","method":"cash"}`)

	_, err := proc.Invoke(context.Background(), nil, raw)
	require.True(t, shared.IsKind(err, shared.KindUnauthenticated))

	_, err = proc.Invoke(context.Background(), principal(rbac.PermSalesView), raw)
	require.True(t, shared.IsKind(err, shared.KindForbidden))
	require.Equal(t, "sales:create", shared.AsError(err).Permission)

	require.Zero(t, calls)

	out, err := proc.Invoke(context.Background(), principal(rbac.PermSalesCreate), raw)
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 1, calls)
}

func TestRejectionPrecedesValidation(t *testing.T) {
	proc := Mutation("sales.recordPayment", Permission(rbac.PermSalesCreate),
		func(ctx context.Context, p *rbac.Principal, in paymentInput) (string, error) { return "", nil })

	_, err := proc.Invoke(context.Background(), principal(), json.RawMessage(`{"amount":"-1"}`))
	require.True(t, shared.IsKind(err, shared.KindForbidden))
}

func TestAuthenticatedAccess(t *testing.T) {
	proc := Query("auth.unreadCount", Authenticated(),
		func(ctx context.Context, p *rbac.Principal, in Empty) (int64, error) { return p.UserID, nil })

	_, err := proc.Invoke(context.Background(), nil, nil)
	require.True(t, shared.IsKind(err, shared.KindUnauthenticated))

	// No permissions at all is still authenticated.
	out, err := proc.Invoke(context.Background(), principal(), nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), out)
}

func TestPublicAccess(t *testing.T) {
	proc := Query("auth.session", Public(),
		func(ctx context.Context, p *rbac.Principal, in Empty) (*rbac.Principal, error) { return p, nil })
	out, err := proc.Invoke(context.Background(), nil, json.RawMessage("null"))
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestValidationFieldsUseJSONPaths(t *testing.T) {
	proc := Mutation("sales.recordPayment", Permission(rbac.PermSalesCreate),
		func(ctx context.Context, p *rbac.Principal, in paymentInput) (string, error) { return "", nil })

	_, err := proc.Invoke(context.Background(), principal(rbac.PermSalesCreate),
		json.RawMessage(`{"amount":"0","method":"cheque","lines":[{"quantity":"1"},{"quantity":"-2"}]}`))
	require.True(t, shared.IsKind(err, shared.KindValidation))
	fields := shared.AsError(err).Fields
	require.Equal(t, "is required", fields["invoiceId"])
	require.Equal(t, "must be greater than 0", fields["amount"])
	require.Equal(t, "must be one of cash, bank, card", fields["method"])
	require.Equal(t, "must be greater than 0", fields["lines[1].quantity"])
	require.NotContains(t, fields, "lines[0].quantity")
}

func TestDecodeErrors(t *testing.T) {
	proc := Mutation("sales.recordPayment", Public(),
		func(ctx context.Context, p *rbac.Principal, in paymentInput) (string, error) { return "", nil })

	_, err := proc.Invoke(context.Background(), nil, json.RawMessage(`{"invoiceId":"one"}`))
	require.True(t, shared.IsKind(err, shared.KindValidation))
	require.Contains(t, shared.AsError(err).Fields, "invoiceId")

	_, err = proc.Invoke(context.Background(), nil, json.RawMessage(`{"bogus":1}`))
	require.True(t, shared.IsKind(err, shared.KindValidation))
	require.Contains(t, shared.AsError(err).Fields, "bogus")

	_, err = proc.Invoke(context.Background(), nil, json.RawMessage(`{`))
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry(nil, nil)
	proc := Query("setup.listRoles", Public(),
		func(ctx context.Context, p *rbac.Principal, in Empty) (int, error) { return 0, nil })
	reg.Register(proc)
	require.Panics(t, func() { reg.Register(proc) })
	require.Panics(t, func() { reg.Register(Procedure{Name: "setup.raw"}) })
	require.Panics(t, func() {
		Query("Bad Name", Public(), func(ctx context.Context, p *rbac.Principal, in Empty) (int, error) { return 0, nil })
	})
	require.Panics(t, func() { Permission("sales:approve") })
	require.Equal(t, []string{"setup.listRoles"}, reg.Names())
}

func TestRegistryCallObservesOutcome(t *testing.T) {
	obs := &recordingObserver{}
	reg := NewRegistry(nil, obs)
	reg.Register(Query("inventory.listWarehouses", Permission(rbac.PermInventoryView),
		func(ctx context.Context, p *rbac.Principal, in Empty) ([]string, error) { return []string{"WH1"}, nil }))

	_, err := reg.Call(context.Background(), "inventory.listWarehouses", principal(), nil)
	require.Error(t, err)
	_, err = reg.Call(context.Background(), "inventory.listWarehouses", principal(rbac.PermInventoryView), nil)
	require.NoError(t, err)
	_, err = reg.Call(context.Background(), "inventory.unknown", principal(), nil)
	require.True(t, shared.IsKind(err, shared.KindNotFound))

	require.Equal(t, []string{
		"inventory.listWarehouses/query/FORBIDDEN",
		"inventory.listWarehouses/query/OK",
	}, obs.codes)
}

func newTestServer(t *testing.T, reg *Registry, p *rbac.Principal) *httptest.Server {
	t.Helper()
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(rbac.WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	})
	router.Mount("/rpc", reg.Routes())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code       string            `json:"code"`
		Message    string            `json:"message"`
		Fields     map[string]string `json:"fields"`
		Permission string            `json:"permission"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func echoRegistry() *Registry {
	reg := NewRegistry(nil, nil)
	reg.Register(
		Query("inventory.getWarehouse", Permission(rbac.PermInventoryView),
			func(ctx context.Context, p *rbac.Principal, in struct {
				Code string `json:"code" validate:"required"`
			}) (map[string]string, error) {
				return map[string]string{"code": in.Code}, nil
			}),
		Mutation("inventory.createWarehouse", Permission(rbac.PermInventoryCreate),
			func(ctx context.Context, p *rbac.Principal, in struct {
				Code string `json:"code" validate:"required"`
			}) (map[string]string, error) {
				if in.Code == "WH1" {
					return nil, shared.Conflict("warehouse code already exists")
				}
				return map[string]string{"code": in.Code}, nil
			}),
	)
	return reg
}

func TestTransportSuccessAndErrors(t *testing.T) {
	srv := newTestServer(t, echoRegistry(), principal(rbac.PermInventoryView, rbac.PermInventoryCreate))

	resp, err := http.Post(srv.URL+"/rpc/inventory.createWarehouse", "application/json", strings.NewReader(`{"code":"WH2"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	require.JSONEq(t, `{"code":"WH2"}`, string(env.Result))

	resp, err = http.Post(srv.URL+"/rpc/inventory.createWarehouse", "application/json", strings.NewReader(`{"code":"WH1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	env = decodeEnvelope(t, resp)
	require.Equal(t, "CONFLICT", env.Error.Code)

	resp, err = http.Post(srv.URL+"/rpc/inventory.createWarehouse", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	env = decodeEnvelope(t, resp)
	require.Equal(t, "is required", env.Error.Fields["code"])

	resp, err = http.Post(srv.URL+"/rpc/inventory.nothing", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTransportQueryOverGet(t *testing.T) {
	srv := newTestServer(t, echoRegistry(), principal(rbac.PermInventoryView, rbac.PermInventoryCreate))

	resp, err := http.Get(srv.URL + "/rpc/inventory.getWarehouse?input=" + url.QueryEscape(`{"code":"WH9"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	require.JSONEq(t, `{"code":"WH9"}`, string(env.Result))

	resp, err = http.Get(srv.URL + "/rpc/inventory.createWarehouse?input=" + url.QueryEscape(`{"code":"WH9"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestTransportStatusForRejections(t *testing.T) {
	anon := newTestServer(t, echoRegistry(), nil)
	resp, err := http.Post(anon.URL+"/rpc/inventory.createWarehouse", "application/json", strings.NewReader(`{"code":"WH2"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	viewer := newTestServer(t, echoRegistry(), principal(rbac.PermInventoryView))
	resp, err = http.Post(viewer.URL+"/rpc/inventory.createWarehouse", "application/json", strings.NewReader(`{"code":"WH2"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	require.Equal(t, "inventory:create", env.Error.Permission)
}
