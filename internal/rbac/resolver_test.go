package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

type stubLoader struct {
	principals map[int64]*Principal
	calls      int
	err        error
}

func (s *stubLoader) LoadPrincipal(_ context.Context, userID int64) (*Principal, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.principals[userID], nil
}

func newSessions(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "odyssey_session", time.Hour, false), mr
}

func TestResolverReturnsPrincipal(t *testing.T) {
	sessions, _ := newSessions(t)
	loader := &stubLoader{principals: map[int64]*Principal{
		5: NewPrincipal(5, "Ana", "ana@example.com", 1, "Sales", []Permission{PermSalesView}),
	}}
	resolver := NewResolver(sessions, loader)
	ctx := context.Background()

	sess, err := sessions.Create(ctx, 5)
	require.NoError(t, err)

	p, ok, err := resolver.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(5), p.UserID)

	// Rebuilt on every call.
	_, _, err = resolver.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, 2, loader.calls)
}

func TestResolverAnonymousCases(t *testing.T) {
	sessions, mr := newSessions(t)
	loader := &stubLoader{principals: map[int64]*Principal{}}
	resolver := NewResolver(sessions, loader)
	ctx := context.Background()

	p, ok, err := resolver.Resolve(ctx, "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, p)

	_, ok, err = resolver.Resolve(ctx, "unknown-token")
	require.NoError(t, err)
	require.False(t, ok)

	// Inactive or deleted user.
	sess, err := sessions.Create(ctx, 9)
	require.NoError(t, err)
	_, ok, err = resolver.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	require.False(t, ok)

	// Expired session.
	loader.principals[9] = NewPrincipal(9, "", "", 0, "", nil)
	mr.FastForward(2 * time.Hour)
	_, ok, err = resolver.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	require.False(t, ok)
}

type brokenSessions struct{}

func (brokenSessions) Lookup(context.Context, string) (shared.Session, bool, error) {
	return shared.Session{}, false, errors.New("connection refused")
}

func TestResolverPropagatesStoreFailure(t *testing.T) {
	resolver := NewResolver(brokenSessions{}, &stubLoader{})

	_, ok, err := resolver.Resolve(context.Background(), "token")
	require.Error(t, err)
	require.False(t, ok)
}

func TestMiddlewareResolve(t *testing.T) {
	sessions, _ := newSessions(t)
	loader := &stubLoader{principals: map[int64]*Principal{
		5: NewPrincipal(5, "Ana", "ana@example.com", 1, "Sales", []Permission{PermSalesView}),
	}}
	mw := Middleware{Resolver: NewResolver(sessions, loader), Tokens: sessions, Logger: slog.Default()}

	var seen *Principal
	handler := mw.Resolve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	sess, err := sessions.Create(context.Background(), 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/rpc/auth.session", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, int64(5), seen.UserID)

	seen = nil
	req = httptest.NewRequest(http.MethodPost, "/rpc/auth.session", nil)
	req.AddCookie(&http.Cookie{Name: "odyssey_session", Value: "stale"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Nil(t, seen)
}

func TestMiddlewareFailsOnLoaderError(t *testing.T) {
	sessions, _ := newSessions(t)
	mw := Middleware{Resolver: NewResolver(sessions, &stubLoader{err: errors.New("db down")}), Tokens: sessions}
	sess, err := sessions.Create(context.Background(), 1)
	require.NoError(t, err)

	called := false
	handler := mw.Resolve(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	req := httptest.NewRequest(http.MethodPost, "/rpc/sales.listOrders", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.False(t, called)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "db down")
}
