package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/testing/memsink"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (m *recordingMailer) EnqueueNotificationMail(_ context.Context, n notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func TestEmitInsertsUnreadNotification(t *testing.T) {
	sinks := memsink.New()
	em := notify.NewEmitter(nil, nil)

	n, err := em.Emit(context.Background(), sinks, 7, notify.TypeApproval, " PO approved ", "PO-00001 approved", "/purchasing/orders/1")
	require.NoError(t, err)
	require.NotZero(t, n.ID)
	require.Equal(t, "PO approved", n.Title)
	require.False(t, n.Read)
	require.Len(t, sinks.Notifications, 1)
	require.Equal(t, int64(7), sinks.Notifications[0].UserID)
}

func TestEmitDefaultsType(t *testing.T) {
	sinks := memsink.New()
	n, err := notify.NewEmitter(nil, nil).Emit(context.Background(), sinks, 1, "", "hello", "", "")
	require.NoError(t, err)
	require.Equal(t, notify.TypeInfo, n.Type)
}

func TestEmitRejectsMissingTarget(t *testing.T) {
	sinks := memsink.New()
	em := notify.NewEmitter(nil, nil)

	_, err := em.Emit(context.Background(), sinks, 0, notify.TypeInfo, "title", "", "")
	require.ErrorIs(t, err, notify.ErrInvalid)
	_, err = em.Emit(context.Background(), sinks, 1, notify.TypeInfo, "  ", "", "")
	require.ErrorIs(t, err, notify.ErrInvalid)
	require.Empty(t, sinks.Notifications)
}

func TestDispatchForwardsPersistedNotifications(t *testing.T) {
	mailer := &recordingMailer{}
	em := notify.NewEmitter(mailer, nil)

	em.Dispatch(context.Background(), notify.Notification{ID: 1, UserID: 2, Title: "a"}, notify.Notification{Title: "unsaved"})
	require.Len(t, mailer.sent, 1)
	require.Equal(t, int64(1), mailer.sent[0].ID)
}

func TestDispatchSwallowsMailerFailure(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("queue down")}
	em := notify.NewEmitter(mailer, nil)
	require.NotPanics(t, func() {
		em.Dispatch(context.Background(), notify.Notification{ID: 1, UserID: 2, Title: "a"})
	})

	var nilEmitter *notify.Emitter
	require.NotPanics(t, func() { nilEmitter.Dispatch(context.Background(), notify.Notification{ID: 1}) })
}
