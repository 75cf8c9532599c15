package customers_test

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/customers"
	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
	"github.com/odyssey-erp/backoffice/internal/shared"
	_ "github.com/odyssey-erp/backoffice/internal/testing/guard"
	"github.com/odyssey-erp/backoffice/internal/testing/memsink"
)

type memoryCustomerRepo struct {
	mu        sync.Mutex
	sinks     *memsink.Sinks
	rows      map[int64]customers.Customer
	deps      map[int64]customers.Dependents
	nextID    int64
	collideOn string
	// racers are rows committed by a simulated concurrent transaction; they
	// survive the rollback of the transaction that observed them.
	racers []customers.Customer
}

func newMemoryCustomerRepo() *memoryCustomerRepo {
	return &memoryCustomerRepo{sinks: memsink.New(), rows: map[int64]customers.Customer{}, deps: map[int64]customers.Dependents{}}
}

func (m *memoryCustomerRepo) seed(code, name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rows[m.nextID] = customers.Customer{ID: m.nextID, CustomerID: code, CompanyName: name, IsActive: true, Country: "ID"}
	return m.nextID
}

func (m *memoryCustomerRepo) Get(_ context.Context, id int64) (customers.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return customers.Customer{}, shared.NotFound("customer")
	}
	return c, nil
}

func (m *memoryCustomerRepo) List(_ context.Context, req customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []customers.Customer
	for _, c := range m.rows {
		if req.Search != "" && !strings.Contains(strings.ToLower(c.CompanyName), strings.ToLower(req.Search)) {
			continue
		}
		if req.IsActive != nil && c.IsActive != *req.IsActive {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CustomerID < all[j].CustomerID })
	return shared.Paginate(all, req.PageRequest), len(all), nil
}

func (m *memoryCustomerRepo) WithTx(ctx context.Context, fn func(context.Context, customers.TxRepository) error) error {
	m.mu.Lock()
	rows := make(map[int64]customers.Customer, len(m.rows))
	for k, v := range m.rows {
		rows[k] = v
	}
	nextID := m.nextID
	m.mu.Unlock()
	cp := m.sinks.Mark()
	if err := fn(ctx, &memoryCustomerTx{Sinks: m.sinks, repo: m}); err != nil {
		m.mu.Lock()
		m.rows, m.nextID = rows, nextID
		for _, r := range m.racers {
			m.nextID++
			r.ID = m.nextID
			m.rows[r.ID] = r
		}
		m.racers = nil
		m.mu.Unlock()
		m.sinks.Rollback(cp)
		return err
	}
	return nil
}

type memoryCustomerTx struct {
	*memsink.Sinks
	repo *memoryCustomerRepo
}

func (t *memoryCustomerTx) NextCustomerID(_ context.Context, prefix string) (string, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	existing := make([]string, 0, len(t.repo.rows))
	for _, c := range t.repo.rows {
		existing = append(existing, c.CustomerID)
	}
	return shared.FormatNumber(prefix, shared.NextFromExisting(prefix, existing)), nil
}

func (t *memoryCustomerTx) Insert(_ context.Context, c customers.Customer) (int64, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.repo.collideOn != "" && c.CustomerID == t.repo.collideOn {
		// A concurrent insert took the number first.
		t.repo.racers = append(t.repo.racers, customers.Customer{CustomerID: c.CustomerID, CompanyName: "racer"})
		t.repo.collideOn = ""
		return 0, shared.Conflict("customer id already exists")
	}
	for _, existing := range t.repo.rows {
		if existing.CustomerID == c.CustomerID {
			return 0, shared.Conflict("customer id already exists")
		}
	}
	t.repo.nextID++
	c.ID = t.repo.nextID
	t.repo.rows[c.ID] = c
	return c.ID, nil
}

func (t *memoryCustomerTx) GetForUpdate(ctx context.Context, id int64) (customers.Customer, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryCustomerTx) Update(_ context.Context, c customers.Customer) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.rows[c.ID] = c
	return nil
}

func (t *memoryCustomerTx) CountDependents(_ context.Context, id int64) (customers.Dependents, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	return t.repo.deps[id], nil
}

func (t *memoryCustomerTx) Delete(_ context.Context, id int64) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	delete(t.repo.rows, id)
	return nil
}

const actor = int64(10)

func TestCreateGeneratesNextCustomerID(t *testing.T) {
	repo := newMemoryCustomerRepo()
	repo.seed("CUST-00003", "Beta")
	repo.seed("CUST-00007", "Gamma")
	repo.seed("LEGACY-1", "Legacy")
	svc := customers.NewService(repo, "CUST-", nil)

	created, err := svc.Create(context.Background(), actor, customers.CreateCustomerRequest{CompanyName: "Acme"})
	require.NoError(t, err)
	require.Equal(t, "CUST-00008", created.CustomerID)
	require.True(t, created.IsActive)
	require.Equal(t, []audit.Action{audit.ActionCreate}, repo.sinks.Actions("customer"))
	require.Equal(t, "Acme", repo.sinks.Entries[0].NewValue["companyName"])
}

func TestCreateRetriesGeneratedCollision(t *testing.T) {
	repo := newMemoryCustomerRepo()
	repo.seed("CUST-00001", "Alpha")
	repo.collideOn = "CUST-00002"
	svc := customers.NewService(repo, "CUST-", nil)

	created, err := svc.Create(context.Background(), actor, customers.CreateCustomerRequest{CompanyName: "Acme"})
	require.NoError(t, err)
	require.Equal(t, "CUST-00003", created.CustomerID)
	require.Len(t, repo.sinks.Entries, 1)
}

func TestCreateExplicitDuplicateConflicts(t *testing.T) {
	repo := newMemoryCustomerRepo()
	repo.seed("ACME", "Acme")
	svc := customers.NewService(repo, "", nil)

	_, err := svc.Create(context.Background(), actor, customers.CreateCustomerRequest{CustomerID: "ACME", CompanyName: "Acme 2"})
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.Empty(t, repo.sinks.Entries)
}

func TestDeleteBlockedByFinancialChildren(t *testing.T) {
	repo := newMemoryCustomerRepo()
	withOrders := repo.seed("CUST-00001", "Has Orders")
	withInvoices := repo.seed("CUST-00002", "Has Invoices")
	clean := repo.seed("CUST-00003", "Clean")
	repo.deps[withOrders] = customers.Dependents{SalesOrders: 1}
	repo.deps[withInvoices] = customers.Dependents{Invoices: 2}
	svc := customers.NewService(repo, "CUST-", nil)
	ctx := context.Background()

	err := svc.Delete(ctx, actor, withOrders)
	require.True(t, shared.IsKind(err, shared.KindPreconditionFailed))
	err = svc.Delete(ctx, actor, withInvoices)
	require.True(t, shared.IsKind(err, shared.KindPreconditionFailed))
	require.Empty(t, repo.sinks.Entries)

	require.NoError(t, svc.Delete(ctx, actor, clean))
	_, err = svc.Get(ctx, clean)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
	require.Equal(t, []audit.Action{audit.ActionDelete}, repo.sinks.Actions("customer"))
	require.Equal(t, "Clean", repo.sinks.Entries[0].OldValue["companyName"])

	err = svc.Delete(ctx, actor, 999)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestUpdateDeactivatesAndAudits(t *testing.T) {
	repo := newMemoryCustomerRepo()
	id := repo.seed("CUST-00001", "Acme")
	svc := customers.NewService(repo, "CUST-", nil)

	inactive := false
	limit := decimal.RequireFromString("1500.456")
	updated, err := svc.Update(context.Background(), actor, customers.UpdateCustomerRequest{ID: id, IsActive: &inactive, CreditLimit: &limit})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Equal(t, "1500.46", updated.CreditLimit.StringFixed(2))

	entry := repo.sinks.Entries[0]
	require.Equal(t, audit.ActionUpdate, entry.Action)
	require.Equal(t, true, entry.OldValue["isActive"])
	require.Equal(t, false, entry.NewValue["isActive"])
}

func TestListIsRepeatable(t *testing.T) {
	repo := newMemoryCustomerRepo()
	for _, code := range []string{"CUST-00002", "CUST-00001", "CUST-00003"} {
		repo.seed(code, "Company "+code)
	}
	svc := customers.NewService(repo, "CUST-", nil)
	req := customers.ListCustomersRequest{PageRequest: shared.PageRequest{PageSize: 2}}

	first, err := svc.List(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, "CUST-00001", first.Customers[0].CustomerID)
	require.True(t, first.Pagination.HasNext)
	require.Equal(t, 3, first.Pagination.Total)
}

func TestProceduresGateBeforeHandler(t *testing.T) {
	repo := newMemoryCustomerRepo()
	id := repo.seed("CUST-00001", "Acme")
	reg := rpc.NewRegistry(nil, nil)
	customers.NewHandler(customers.NewService(repo, "CUST-", nil)).Register(reg)
	ctx := context.Background()
	viewer := rbac.NewPrincipal(actor, "Viewer", "v@example.com", 2, "Viewer", []rbac.Permission{rbac.PermSalesView})

	raw, _ := json.Marshal(customers.IDRequest{ID: id})
	_, err := reg.Call(ctx, "customers.delete", viewer, raw)
	require.True(t, shared.IsKind(err, shared.KindForbidden))
	_, err = reg.Call(ctx, "customers.delete", nil, raw)
	require.True(t, shared.IsKind(err, shared.KindUnauthenticated))
	require.Empty(t, repo.sinks.Entries)
	require.Contains(t, repo.rows, id)

	out, err := reg.Call(ctx, "customers.get", viewer, raw)
	require.NoError(t, err)
	require.Equal(t, "Acme", out.(customers.Customer).CompanyName)

	_, err = reg.Call(ctx, "customers.create", rbac.NewPrincipal(actor, "", "", 0, "", []rbac.Permission{rbac.PermSalesCreate}), json.RawMessage(`{}`))
	require.True(t, shared.IsKind(err, shared.KindValidation))
	require.Equal(t, "is required", shared.AsError(err).Fields["companyName"])
}
