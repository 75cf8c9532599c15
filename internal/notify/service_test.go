package notify_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type memoryInbox struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (m *memoryInbox) add(userID int64, title string, read bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.items) + 1)
	m.items = append(m.items, notify.Notification{ID: id, UserID: userID, Title: title, Read: read, CreatedAt: time.Unix(id, 0)})
	return id
}

func (m *memoryInbox) filter(userID int64, unreadOnly bool) []notify.Notification {
	var out []notify.Notification
	for _, n := range m.items {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryInbox) List(_ context.Context, userID int64, unreadOnly bool, limit, offset int) ([]notify.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filter(userID, unreadOnly)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memoryInbox) Count(_ context.Context, userID int64, unreadOnly bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filter(userID, unreadOnly)), nil
}

func (m *memoryInbox) MarkRead(_ context.Context, userID, id int64, at time.Time) (notify.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			if !m.items[i].Read {
				m.items[i].Read = true
				m.items[i].ReadAt = &at
			}
			return m.items[i], nil
		}
	}
	return notify.Notification{}, shared.ErrNotFound
}

func (m *memoryInbox) MarkAllRead(_ context.Context, userID int64, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].Read {
			m.items[i].Read = true
			m.items[i].ReadAt = &at
			n++
		}
	}
	return n, nil
}

func TestInboxListAndUnreadCount(t *testing.T) {
	repo := &memoryInbox{}
	repo.add(1, "first", false)
	repo.add(1, "second", true)
	repo.add(1, "third", false)
	repo.add(2, "other user", false)
	svc := notify.NewService(repo)
	ctx := context.Background()

	res, err := svc.List(ctx, 1, notify.ListInput{})
	require.NoError(t, err)
	require.Len(t, res.Notifications, 3)
	require.Equal(t, "third", res.Notifications[0].Title)
	require.Equal(t, 3, res.Pagination.Total)

	unread, err := svc.List(ctx, 1, notify.ListInput{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Notifications, 2)

	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestInboxEmptyListIsNotNil(t *testing.T) {
	res, err := notify.NewService(&memoryInbox{}).List(context.Background(), 9, notify.ListInput{})
	require.NoError(t, err)
	require.NotNil(t, res.Notifications)
	require.Empty(t, res.Notifications)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	repo := &memoryInbox{}
	id := repo.add(1, "mine", false)
	svc := notify.NewService(repo)
	ctx := context.Background()

	_, err := svc.MarkRead(ctx, 2, id)
	require.True(t, shared.IsKind(err, shared.KindNotFound))

	n, err := svc.MarkRead(ctx, 1, id)
	require.NoError(t, err)
	require.True(t, n.Read)
	require.NotNil(t, n.ReadAt)

	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMarkAllRead(t *testing.T) {
	repo := &memoryInbox{}
	repo.add(1, "a", false)
	repo.add(1, "b", false)
	repo.add(2, "c", false)
	svc := notify.NewService(repo)

	changed, err := svc.MarkAllRead(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), changed)

	other, err := svc.UnreadCount(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 1, other)
}
