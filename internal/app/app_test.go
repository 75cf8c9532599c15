package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/observability"
	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
	"github.com/odyssey-erp/backoffice/internal/shared"
	_ "github.com/odyssey-erp/backoffice/internal/testing/guard"
)

func TestLoadConfigDefaultsAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CUSTOMER_ID_PREFIX=CLI-\nRATE_LIMIT_PER_MINUTE=30\n"), 0o600))
	t.Setenv("APP_ENV", "production")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "45")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "CLI-", cfg.CustomerIDPrefix)
	require.Equal(t, 45, cfg.RateLimitPerMinute, "process env wins over .env")
	require.Equal(t, "odyssey_session", cfg.SessionCookie)
	require.Equal(t, 720*time.Hour, cfg.SessionTTL)
	require.False(t, cfg.NotifyMailEnabled)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "RATE_LIMIT_PER_MINUTE")
}

type staticLoader struct {
	principal *rbac.Principal
}

func (l staticLoader) LoadPrincipal(_ context.Context, userID int64) (*rbac.Principal, error) {
	if l.principal == nil || l.principal.UserID != userID {
		return nil, nil
	}
	return l.principal, nil
}

type routerFixture struct {
	server   *httptest.Server
	sessions *shared.SessionManager
}

func newRouterFixture(t *testing.T, checks map[string]HealthCheck) routerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &Config{AppEnv: "test", RateLimitPerMinute: 1000, AppRequestTimeout: 5 * time.Second}
	sessions := shared.NewSessionManager(client, "odyssey_session", time.Hour, false)
	principal := rbac.NewPrincipal(7, "Rina", "rina@example.com", 2, "Sales", []rbac.Permission{rbac.PermSalesView})
	metrics := observability.NewMetrics()

	reg := rpc.NewRegistry(nil, metrics)
	reg.Register(
		rpc.Query("system.ping", rpc.Public(), func(context.Context, *rbac.Principal, rpc.Empty) (string, error) {
			return "pong", nil
		}),
		rpc.Query("sales.whoami", rpc.Permission(rbac.PermSalesView), func(_ context.Context, p *rbac.Principal, _ rpc.Empty) (string, error) {
			return p.Name, nil
		}),
	)

	router := NewRouter(RouterParams{
		Config:   cfg,
		Registry: reg,
		Sessions: rbac.Middleware{
			Resolver: rbac.NewResolver(sessions, staticLoader{principal: principal}),
			Tokens:   sessions,
		},
		Metrics: metrics,
		Checks:  checks,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return routerFixture{server: srv, sessions: sessions}
}

func post(t *testing.T, url, token string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestRouterResolvesSessionForProcedures(t *testing.T) {
	fx := newRouterFixture(t, nil)

	resp, body := post(t, fx.server.URL+"/rpc/system.ping", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `"pong"`, string(body["result"]))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, body = post(t, fx.server.URL+"/rpc/sales.whoami", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(body["error"]), "UNAUTHENTICATED")

	sess, err := fx.sessions.Create(context.Background(), 7)
	require.NoError(t, err)
	resp, body = post(t, fx.server.URL+"/rpc/sales.whoami", sess.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `"Rina"`, string(body["result"]))
}

func TestHealthzReportsFailingChecks(t *testing.T) {
	fx := newRouterFixture(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	resp, err := http.Get(fx.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var out healthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "degraded", out.Status)
	require.Equal(t, "ok", out.Checks["postgres"])
	require.Equal(t, "connection refused", out.Checks["redis"])
}

func TestMetricsEndpointCountsProcedures(t *testing.T) {
	fx := newRouterFixture(t, nil)
	post(t, fx.server.URL+"/rpc/system.ping", "")

	resp, err := http.Get(fx.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), `procedure="system.ping"`)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(&Config{AppAddr: "127.0.0.1:0", AppReadTimeout: time.Second, AppWriteTimeout: time.Second}, http.NotFoundHandler())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil))) }()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestSkipStartupFollowsTestModeFlag(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	require.True(t, SkipStartup(slog.New(slog.NewTextHandler(io.Discard, nil)), "server"))

	t.Setenv(TestModeEnv, "")
	RefreshTestMode()
	require.False(t, SkipStartup(nil, "server"))

	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
}
