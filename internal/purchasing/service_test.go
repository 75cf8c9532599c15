package purchasing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/notify"
	"github.com/odyssey-erp/backoffice/internal/purchasing"
	"github.com/odyssey-erp/backoffice/internal/shared"
	_ "github.com/odyssey-erp/backoffice/internal/testing/guard"
	"github.com/odyssey-erp/backoffice/internal/testing/memsink"
)

const actor int64 = 11

type purchasingState struct {
	vendors  map[int64]purchasing.Vendor
	orders   map[int64]purchasing.Order
	receipts []purchasing.Receipt
	nextID   int64
}

func (s purchasingState) clone() purchasingState {
	out := purchasingState{
		vendors:  make(map[int64]purchasing.Vendor, len(s.vendors)),
		orders:   make(map[int64]purchasing.Order, len(s.orders)),
		receipts: append([]purchasing.Receipt(nil), s.receipts...),
		nextID:   s.nextID,
	}
	for k, v := range s.vendors {
		out.vendors[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	return out
}

type memoryPurchasingRepo struct {
	mu         sync.Mutex
	sinks      *memsink.Sinks
	warehouses map[int64]bool
	state      purchasingState
}

func newMemoryPurchasingRepo() *memoryPurchasingRepo {
	return &memoryPurchasingRepo{
		sinks:      memsink.New(),
		warehouses: map[int64]bool{1: true, 2: false},
		state:      purchasingState{vendors: map[int64]purchasing.Vendor{}, orders: map[int64]purchasing.Order{}},
	}
}

func (m *memoryPurchasingRepo) ListVendors(_ context.Context, f purchasing.VendorFilter) ([]purchasing.Vendor, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []purchasing.Vendor
	for _, v := range m.state.vendors {
		out = append(out, v)
	}
	return shared.Paginate(out, f.PageRequest), len(out), nil
}

func (m *memoryPurchasingRepo) GetVendor(_ context.Context, id int64) (purchasing.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state.vendors[id]
	if !ok {
		return purchasing.Vendor{}, shared.NotFound("vendor")
	}
	return v, nil
}

func (m *memoryPurchasingRepo) ListOrders(_ context.Context, f purchasing.OrderFilter) ([]purchasing.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []purchasing.Order
	for _, o := range m.state.orders {
		out = append(out, o)
	}
	return shared.Paginate(out, f.PageRequest), len(out), nil
}

func (m *memoryPurchasingRepo) GetOrder(_ context.Context, id int64) (purchasing.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok {
		return purchasing.Order{}, shared.NotFound("purchase order")
	}
	o.Receipts = []purchasing.Receipt{}
	for _, r := range m.state.receipts {
		if r.OrderID == id {
			o.Receipts = append(o.Receipts, r)
		}
	}
	return o, nil
}

func (m *memoryPurchasingRepo) WithTx(ctx context.Context, fn func(context.Context, purchasing.TxRepository) error) error {
	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()
	cp := m.sinks.Mark()
	if err := fn(ctx, &memoryPurchasingTx{Sinks: m.sinks, repo: m}); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		m.sinks.Rollback(cp)
		return err
	}
	return nil
}

type memoryPurchasingTx struct {
	*memsink.Sinks
	repo *memoryPurchasingRepo
}

func (t *memoryPurchasingTx) NextNumber(_ context.Context, spec shared.SequenceSpec) (string, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	var existing []string
	for _, v := range t.repo.state.vendors {
		existing = append(existing, v.VendorCode)
	}
	for _, o := range t.repo.state.orders {
		existing = append(existing, o.PONumber)
	}
	for _, r := range t.repo.state.receipts {
		existing = append(existing, r.ReceiptNumber)
	}
	return shared.FormatNumber(spec.Prefix, shared.NextFromExisting(spec.Prefix, existing)), nil
}

func (t *memoryPurchasingTx) InsertVendor(_ context.Context, v purchasing.Vendor) (int64, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.state.nextID++
	v.ID = t.repo.state.nextID
	t.repo.state.vendors[v.ID] = v
	return v.ID, nil
}

func (t *memoryPurchasingTx) GetVendorForUpdate(ctx context.Context, id int64) (purchasing.Vendor, error) {
	return t.repo.GetVendor(ctx, id)
}

func (t *memoryPurchasingTx) CountVendorOrders(_ context.Context, vendorID int64) (int, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	n := 0
	for _, o := range t.repo.state.orders {
		if o.VendorID == vendorID {
			n++
		}
	}
	return n, nil
}

func (t *memoryPurchasingTx) DeleteVendor(_ context.Context, id int64) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	delete(t.repo.state.vendors, id)
	return nil
}

func (t *memoryPurchasingTx) InsertOrder(_ context.Context, o purchasing.Order) (int64, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.state.nextID++
	o.ID = t.repo.state.nextID
	o.VendorName = t.repo.state.vendors[o.VendorID].Name
	t.repo.state.orders[o.ID] = o
	return o.ID, nil
}

func (t *memoryPurchasingTx) GetOrderForUpdate(ctx context.Context, id int64) (purchasing.Order, error) {
	return t.repo.GetOrder(ctx, id)
}

func (t *memoryPurchasingTx) ReplaceOrderLines(_ context.Context, id int64, lines []purchasing.Line, totals purchasing.Totals) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	o := t.repo.state.orders[id]
	o.Lines, o.Totals = lines, totals
	t.repo.state.orders[id] = o
	return nil
}

func (t *memoryPurchasingTx) UpdateOrderStatus(_ context.Context, id int64, status purchasing.Status) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	o := t.repo.state.orders[id]
	o.Status = status
	t.repo.state.orders[id] = o
	return nil
}

func (t *memoryPurchasingTx) SetApproval(_ context.Context, id, userID int64, at time.Time) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	o := t.repo.state.orders[id]
	o.ApprovedBy, o.ApprovedAt = &userID, &at
	t.repo.state.orders[id] = o
	return nil
}

func (t *memoryPurchasingTx) CountReceipts(_ context.Context, orderID int64) (int, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	n := 0
	for _, r := range t.repo.state.receipts {
		if r.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (t *memoryPurchasingTx) InsertReceipt(_ context.Context, r purchasing.Receipt) (int64, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.state.nextID++
	r.ID = t.repo.state.nextID
	t.repo.state.receipts = append(t.repo.state.receipts, r)
	return r.ID, nil
}

func (t *memoryPurchasingTx) WarehouseActive(_ context.Context, id int64) (bool, error) {
	return t.repo.warehouses[id], nil
}

func setup(t *testing.T) (*memoryPurchasingRepo, *purchasing.Service, purchasing.Vendor) {
	t.Helper()
	repo := newMemoryPurchasingRepo()
	svc := purchasing.NewService(repo, notify.NewEmitter(nil, nil), nil)
	vendor, err := svc.CreateVendor(context.Background(), actor, purchasing.CreateVendorInput{Name: "  Initech Supplies ", PaymentTermsDays: 30})
	require.NoError(t, err)
	return repo, svc, vendor
}

func newOrder(t *testing.T, svc *purchasing.Service, vendorID int64) purchasing.Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), actor, purchasing.CreateOrderInput{
		VendorID:  vendorID,
		OrderDate: "2026-04-01",
		Lines: []purchasing.LineInput{
			{Description: "Paper", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.RequireFromString("4.25"), TaxRate: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)
	return o
}

func TestCreateVendorGeneratesCode(t *testing.T) {
	_, svc, vendor := setup(t)
	require.Equal(t, "VEND-00001", vendor.VendorCode)
	require.Equal(t, "Initech Supplies", vendor.Name)

	second, err := svc.CreateVendor(context.Background(), actor, purchasing.CreateVendorInput{Name: "Umbrella"})
	require.NoError(t, err)
	require.Equal(t, "VEND-00002", second.VendorCode)
}

func TestDeleteVendorBlockedByOrders(t *testing.T) {
	repo, svc, vendor := setup(t)
	newOrder(t, svc, vendor.ID)

	err := svc.DeleteVendor(context.Background(), actor, vendor.ID)
	require.True(t, shared.IsKind(err, shared.KindPreconditionFailed))
	require.Contains(t, repo.state.vendors, vendor.ID)

	spare, err := svc.CreateVendor(context.Background(), actor, purchasing.CreateVendorInput{Name: "Spare"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteVendor(context.Background(), actor, spare.ID))
	require.Equal(t, []audit.Action{audit.ActionCreate, audit.ActionCreate, audit.ActionDelete}, repo.sinks.Actions("vendor"))
}

func TestOrderLifecycle(t *testing.T) {
	repo, svc, vendor := setup(t)
	ctx := context.Background()
	order := newOrder(t, svc, vendor.ID)
	require.Equal(t, "PO-00001", order.PONumber)
	require.Equal(t, purchasing.StatusDraft, order.Status)
	require.True(t, decimal.RequireFromString("46.75").Equal(order.Total), order.Total.String())

	order, err := svc.SubmitOrder(ctx, actor, order.ID)
	require.NoError(t, err)
	require.Equal(t, purchasing.StatusPendingApproval, order.Status)

	order, err = svc.UpdateOrderLines(ctx, actor, purchasing.UpdateLinesInput{ID: order.ID, Lines: []purchasing.LineInput{
		{Description: "Toner", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(60)},
	}})
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(120).Equal(order.Total))

	order, err = svc.ApproveOrder(ctx, actor, order.ID)
	require.NoError(t, err)
	require.Equal(t, purchasing.StatusApproved, order.Status)
	require.NotNil(t, order.ApprovedBy)
	require.Len(t, repo.sinks.Notifications, 1)
	require.Equal(t, notify.TypeApproval, repo.sinks.Notifications[0].Type)
	require.Equal(t, actor, repo.sinks.Notifications[0].UserID)

	_, err = svc.UpdateOrderLines(ctx, actor, purchasing.UpdateLinesInput{ID: order.ID, Lines: []purchasing.LineInput{
		{Description: "Toner", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(60)},
	}})
	require.ErrorIs(t, err, purchasing.ErrInvalidState)

	_, err = svc.SendOrder(ctx, actor, order.ID)
	require.NoError(t, err)

	_, err = svc.ApproveOrder(ctx, actor, order.ID)
	require.True(t, shared.IsKind(err, shared.KindPreconditionFailed))
	require.Len(t, repo.sinks.Notifications, 1)

	_, err = svc.ReceiveOrder(ctx, actor, purchasing.ReceiveInput{ID: order.ID, WarehouseID: 2})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	order, err = svc.ReceiveOrder(ctx, actor, purchasing.ReceiveInput{ID: order.ID, WarehouseID: 1, ReceivedDate: "2026-04-10"})
	require.NoError(t, err)
	require.Equal(t, purchasing.StatusReceived, order.Status)
	require.Len(t, order.Receipts, 1)
	require.Equal(t, "GRN-00001", order.Receipts[0].ReceiptNumber)

	_, err = svc.CancelOrder(ctx, actor, order.ID)
	require.True(t, errors.Is(err, purchasing.ErrInvalidState))

	order, err = svc.CloseOrder(ctx, actor, order.ID)
	require.NoError(t, err)
	require.Equal(t, purchasing.StatusClosed, order.Status)

	require.Equal(t, []audit.Action{
		audit.ActionCreate, audit.ActionSubmit, audit.ActionUpdate, audit.ActionApprove,
		audit.ActionSend, audit.ActionReceive, audit.ActionClose,
	}, repo.sinks.Actions("purchase_order"))
}

func TestApproveDraftDirectly(t *testing.T) {
	repo, svc, vendor := setup(t)
	order := newOrder(t, svc, vendor.ID)

	approved, err := svc.ApproveOrder(context.Background(), actor, order.ID)
	require.NoError(t, err)
	require.Equal(t, purchasing.StatusApproved, approved.Status)
	require.Len(t, repo.sinks.Notifications, 1)

	cancelled, err := svc.CancelOrder(context.Background(), actor, order.ID)
	require.NoError(t, err)
	require.Equal(t, purchasing.StatusCancelled, cancelled.Status)
}

func TestApproveRollsBackNotificationWhenAuditFails(t *testing.T) {
	repo, svc, vendor := setup(t)
	order := newOrder(t, svc, vendor.ID)
	repo.sinks.FailAudit = errors.New("audit down")

	_, err := svc.ApproveOrder(context.Background(), actor, order.ID)
	require.Error(t, err)
	require.Empty(t, repo.sinks.Notifications)
	require.Equal(t, purchasing.StatusDraft, repo.state.orders[order.ID].Status)
}
