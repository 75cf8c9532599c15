package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/backoffice/internal/testing/guard"
)

func TestKindOfClassifiesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("create order: %w", Conflict("order number SO-00001 already exists"))
	require.Equal(t, KindConflict, KindOf(wrapped))
	require.True(t, errors.Is(wrapped, &Error{Kind: KindConflict}))

	require.Equal(t, KindNotFound, KindOf(fmt.Errorf("load: %w", ErrNotFound)))
	require.Equal(t, KindInternal, KindOf(errors.New("connection reset")))
	require.Equal(t, Kind(""), KindOf(nil))

	internal := AsError(errors.New("dial tcp"))
	require.Equal(t, KindInternal, internal.Kind)
	require.Equal(t, "internal error", internal.Message)
}

func TestErrorMessageListsFieldsInOrder(t *testing.T) {
	err := Validation("", map[string]string{"name": "is required", "email": "must be an email"})
	require.Equal(t, "validation failed (email: must be an email; name: is required)", err.Error())

	perm := MissingPermission("sales:create")
	require.Equal(t, KindForbidden, perm.Kind)
	require.Equal(t, "sales:create", perm.Permission)
}

func TestMoneyHelpers(t *testing.T) {
	sub, tax := LineAmounts(decimal.RequireFromString("3"), decimal.RequireFromString("19.995"), decimal.RequireFromString("11"))
	require.Equal(t, "59.99", sub.StringFixed(2))
	require.Equal(t, "6.60", tax.StringFixed(2))

	require.True(t, WithinEpsilon(decimal.RequireFromString("100.004"), decimal.RequireFromString("100")))
	require.False(t, WithinEpsilon(decimal.RequireFromString("100.01"), decimal.RequireFromString("100")))
	require.Equal(t, "2.35", RoundMoney(decimal.RequireFromString("2.345")).StringFixed(2))
}

func TestPagination(t *testing.T) {
	req := PageRequest{Page: 0, PageSize: 500}.Normalize()
	require.Equal(t, 1, req.Page)
	require.Equal(t, 100, req.PageSize)

	p := NewPagination(PageRequest{Page: 2, PageSize: 10}, 25)
	require.Equal(t, 3, p.TotalPages)
	require.True(t, p.HasNext)
	require.Equal(t, 10, PageRequest{Page: 2, PageSize: 10}.Offset())

	items := []int{1, 2, 3, 4, 5}
	require.Equal(t, []int{3, 4}, Paginate(items, PageRequest{Page: 2, PageSize: 2}))
	require.Empty(t, Paginate(items, PageRequest{Page: 4, PageSize: 2}))
}

func TestSequenceNumbers(t *testing.T) {
	require.Equal(t, "SO-00042", FormatNumber("SO-", 42))
	n, ok := ParseNumber("INV-", "INV-00017")
	require.True(t, ok)
	require.EqualValues(t, 17, n)
	_, ok = ParseNumber("INV-", "SO-00017")
	require.False(t, ok)

	require.EqualValues(t, 8, NextFromExisting("CUST-", []string{"CUST-00003", "CUST-00007", "LEGACY-99", "CUST-abc"}))
	require.EqualValues(t, 1, NextFromExisting("JE-", nil))
	require.Equal(t, "CUST-", CustomerSequence("").Prefix)
	require.Equal(t, "CLI-", CustomerSequence("CLI-").Prefix)
}

type sequenceRow struct {
	sql  string
	args []any
	next int64
}

func (r *sequenceRow) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	r.sql, r.args = sql, args
	return r
}

func (r *sequenceRow) Scan(dest ...any) error {
	*dest[0].(*int64) = r.next
	return nil
}

func TestNextSequenceFollowsObservedMaximum(t *testing.T) {
	row := &sequenceRow{next: 5}
	got, err := NextSequence(context.Background(), row, CustomerSequence(""))
	require.NoError(t, err)
	require.Equal(t, "CUST-00005", got)
	require.Equal(t, []any{"CUST-", 6, "^CUST-[0-9]+$"}, row.args)
	require.Contains(t, row.sql, `FROM "customers" WHERE "customer_code" ~ $3`)
	require.Contains(t, row.sql, "SET last_value = EXCLUDED.last_value")
	require.NotContains(t, row.sql, "GREATEST")
}

func TestRetryConflicts(t *testing.T) {
	calls := 0
	err := RetryConflicts(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return Conflict("taken")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	calls = 0
	err = RetryConflicts(context.Background(), 3, func(context.Context) error {
		calls++
		return Conflict("taken")
	})
	require.True(t, IsKind(err, KindConflict))
	require.Equal(t, 3, calls)

	calls = 0
	err = RetryConflicts(context.Background(), 3, func(context.Context) error {
		calls++
		return Precondition("closed")
	})
	require.True(t, IsKind(err, KindPreconditionFailed))
	require.Equal(t, 1, calls)

	calls = 0
	err = RetryConflicts(context.Background(), 3, func(context.Context) error {
		calls++
		return &Error{Kind: KindConflict, Message: "replayed", Cause: ErrDuplicateRequest}
	})
	require.ErrorIs(t, err, ErrDuplicateRequest)
	require.Equal(t, 1, calls)
}

func TestSessionManagerLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := NewSessionManager(client, "odyssey_session", time.Hour, true)
	ctx := context.Background()

	sess, err := sm.Create(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Equal(t, time.Hour, mr.TTL("session:"+sess.Token))

	got, ok, err := sm.Lookup(ctx, sess.Token)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 42, got.UserID)

	mr.FastForward(2 * time.Hour)
	_, ok, err = sm.Lookup(ctx, sess.Token)
	require.NoError(t, err)
	require.False(t, ok)

	sess, err = sm.Create(ctx, 42)
	require.NoError(t, err)
	require.NoError(t, sm.Destroy(ctx, sess.Token))
	_, ok, err = sm.Lookup(ctx, sess.Token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionLookupSurfacesStoreFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	sm := NewSessionManager(client, "odyssey_session", time.Hour, false)

	mr.SetError("READONLY backend unavailable")
	_, ok, err := sm.Lookup(context.Background(), "abc")
	require.Error(t, err)
	require.False(t, ok)
}

func TestTokenFromRequestAndCookies(t *testing.T) {
	sm := NewSessionManager(nil, "odyssey_session", time.Hour, true)

	r := httptest.NewRequest(http.MethodPost, "/rpc/auth.session", nil)
	r.Header.Set("Authorization", "Bearer  tok-1 ")
	r.AddCookie(&http.Cookie{Name: "odyssey_session", Value: "cookie-tok"})
	require.Equal(t, "tok-1", sm.TokenFromRequest(r))

	r.Header.Del("Authorization")
	require.Equal(t, "cookie-tok", sm.TokenFromRequest(r))

	rec := httptest.NewRecorder()
	sm.SetCookie(rec, Session{Token: "tok-2"})
	cookie := rec.Result().Cookies()[0]
	require.Equal(t, "tok-2", cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}
