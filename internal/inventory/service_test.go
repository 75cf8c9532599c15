package inventory_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/inventory"
	"github.com/odyssey-erp/backoffice/internal/shared"
	_ "github.com/odyssey-erp/backoffice/internal/testing/guard"
	"github.com/odyssey-erp/backoffice/internal/testing/memsink"
)

const actor int64 = 5

type memoryWarehouseRepo struct {
	mu     sync.Mutex
	sinks  *memsink.Sinks
	rows   map[int64]inventory.Warehouse
	nextID int64
}

func newMemoryWarehouseRepo() *memoryWarehouseRepo {
	return &memoryWarehouseRepo{sinks: memsink.New(), rows: map[int64]inventory.Warehouse{}}
}

func (m *memoryWarehouseRepo) List(_ context.Context, f inventory.WarehouseFilter) ([]inventory.Warehouse, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []inventory.Warehouse
	for _, w := range m.rows {
		if f.IsActive != nil && w.IsActive != *f.IsActive {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return shared.Paginate(out, f.PageRequest), len(out), nil
}

func (m *memoryWarehouseRepo) Get(_ context.Context, id int64) (inventory.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.rows[id]
	if !ok {
		return inventory.Warehouse{}, shared.NotFound("warehouse")
	}
	return w, nil
}

func (m *memoryWarehouseRepo) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	m.mu.Lock()
	rows := make(map[int64]inventory.Warehouse, len(m.rows))
	for k, v := range m.rows {
		rows[k] = v
	}
	m.mu.Unlock()
	cp := m.sinks.Mark()
	if err := fn(ctx, &memoryWarehouseTx{Sinks: m.sinks, repo: m}); err != nil {
		m.mu.Lock()
		m.rows = rows
		m.mu.Unlock()
		m.sinks.Rollback(cp)
		return err
	}
	return nil
}

type memoryWarehouseTx struct {
	*memsink.Sinks
	repo *memoryWarehouseRepo
}

func (t *memoryWarehouseTx) unique(w inventory.Warehouse) error {
	for _, existing := range t.repo.rows {
		if existing.ID != w.ID && strings.EqualFold(existing.Code, w.Code) {
			return shared.Conflict("warehouse code " + w.Code + " already exists")
		}
	}
	return nil
}

func (t *memoryWarehouseTx) Insert(_ context.Context, w inventory.Warehouse) (int64, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if err := t.unique(w); err != nil {
		return 0, err
	}
	t.repo.nextID++
	w.ID = t.repo.nextID
	t.repo.rows[w.ID] = w
	return w.ID, nil
}

func (t *memoryWarehouseTx) GetForUpdate(ctx context.Context, id int64) (inventory.Warehouse, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryWarehouseTx) Update(_ context.Context, w inventory.Warehouse) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if err := t.unique(w); err != nil {
		return err
	}
	t.repo.rows[w.ID] = w
	return nil
}

func TestCreateWarehouseUniqueCode(t *testing.T) {
	repo := newMemoryWarehouseRepo()
	svc := inventory.NewService(repo, nil)
	ctx := context.Background()

	wh, err := svc.Create(ctx, actor, inventory.CreateWarehouseInput{Code: " wh01 ", Name: "Main"})
	require.NoError(t, err)
	require.Equal(t, "WH01", wh.Code)
	require.True(t, wh.IsActive)

	_, err = svc.Create(ctx, actor, inventory.CreateWarehouseInput{Code: "WH01", Name: "Duplicate"})
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.Len(t, repo.rows, 1)
	require.Equal(t, []audit.Action{audit.ActionCreate}, repo.sinks.Actions("warehouse"))
}

func TestUpdateWarehouse(t *testing.T) {
	repo := newMemoryWarehouseRepo()
	svc := inventory.NewService(repo, nil)
	ctx := context.Background()
	a, err := svc.Create(ctx, actor, inventory.CreateWarehouseInput{Code: "A", Name: "Alpha"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, actor, inventory.CreateWarehouseInput{Code: "B", Name: "Beta"})
	require.NoError(t, err)

	inactive := false
	name := "Alpha Annex"
	updated, err := svc.Update(ctx, actor, inventory.UpdateWarehouseInput{ID: a.ID, Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	require.Equal(t, "Alpha Annex", updated.Name)
	require.False(t, updated.IsActive)

	code := "b"
	_, err = svc.Update(ctx, actor, inventory.UpdateWarehouseInput{ID: a.ID, Code: &code})
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.Equal(t, "A", repo.rows[a.ID].Code)

	active := true
	list, err := svc.List(ctx, inventory.WarehouseFilter{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, list.Warehouses, 1)
	require.Equal(t, "B", list.Warehouses[0].Code)

	_, err = svc.Update(ctx, actor, inventory.UpdateWarehouseInput{ID: 99, Name: &name})
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}
