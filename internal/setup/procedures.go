package setup

import (
	"context"
	"time"

	"github.com/odyssey-erp/backoffice/internal/audit"
	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const auditExportLimit = 10000

// Handler exposes the setup.* procedures.
type Handler struct {
	users  *UserService
	roles  *rbac.Service
	audit  *audit.Service
	search *Searcher
	now    func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(users *UserService, roles *rbac.Service, auditLog *audit.Service, search *Searcher) *Handler {
	return &Handler{users: users, roles: roles, audit: auditLog, search: search, now: time.Now}
}

// Register adds the setup procedures to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	view := rpc.Permission(rbac.PermSetupView)
	create := rpc.Permission(rbac.PermSetupCreate)
	edit := rpc.Permission(rbac.PermSetupEdit)
	del := rpc.Permission(rbac.PermSetupDelete)
	reg.Register(
		rpc.Query("setup.listUsers", view, h.listUsers),
		rpc.Mutation("setup.createUser", create, h.createUser),
		rpc.Mutation("setup.assignRole", edit, h.assignRole),
		rpc.Mutation("setup.deactivateUser", del, h.deactivateUser),
		rpc.Query("setup.listRoles", view, h.listRoles),
		rpc.Query("setup.getRole", view, h.getRole),
		rpc.Mutation("setup.createRole", create, h.createRole),
		rpc.Mutation("setup.updateRole", edit, h.updateRole),
		rpc.Mutation("setup.deleteRole", del, h.deleteRole),
		rpc.Mutation("setup.updateRolePermissions", edit, h.updateRolePermissions),
		rpc.Query("setup.listPermissions", view, h.listPermissions),
		rpc.Query("setup.auditLog", view, h.auditLog),
		rpc.Query("setup.exportAuditLog", view, h.exportAuditLog),
		rpc.Query("setup.globalSearch", rpc.Authenticated(), h.globalSearch),
	)
}

func (h *Handler) listUsers(ctx context.Context, _ *rbac.Principal, in UserFilter) (UserList, error) {
	return h.users.ListUsers(ctx, in)
}

func (h *Handler) createUser(ctx context.Context, p *rbac.Principal, in CreateUserInput) (User, error) {
	return h.users.CreateUser(ctx, p.UserID, in)
}

func (h *Handler) assignRole(ctx context.Context, p *rbac.Principal, in AssignRoleInput) (User, error) {
	return h.users.AssignRole(ctx, p.UserID, in)
}

func (h *Handler) deactivateUser(ctx context.Context, p *rbac.Principal, in IDInput) (User, error) {
	return h.users.DeactivateUser(ctx, p.UserID, in.ID)
}

func (h *Handler) listRoles(ctx context.Context, _ *rbac.Principal, _ rpc.Empty) ([]rbac.Role, error) {
	return h.roles.ListRoles(ctx)
}

func (h *Handler) getRole(ctx context.Context, _ *rbac.Principal, in IDInput) (rbac.Role, error) {
	return h.roles.GetRole(ctx, in.ID)
}

func (h *Handler) createRole(ctx context.Context, p *rbac.Principal, in rbac.CreateRoleInput) (rbac.Role, error) {
	return h.roles.CreateRole(ctx, p.UserID, in)
}

func (h *Handler) updateRole(ctx context.Context, p *rbac.Principal, in rbac.UpdateRoleInput) (rbac.Role, error) {
	return h.roles.UpdateRole(ctx, p.UserID, in)
}

func (h *Handler) deleteRole(ctx context.Context, p *rbac.Principal, in IDInput) (bool, error) {
	if err := h.roles.DeleteRole(ctx, p.UserID, in.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (h *Handler) updateRolePermissions(ctx context.Context, p *rbac.Principal, in rbac.UpdatePermissionsInput) (rbac.Role, error) {
	return h.roles.UpdateRolePermissions(ctx, p.UserID, in)
}

func (h *Handler) listPermissions(_ context.Context, _ *rbac.Principal, _ rpc.Empty) ([]rbac.PermissionInfo, error) {
	return rbac.Catalog(), nil
}

func (h *Handler) auditLog(ctx context.Context, _ *rbac.Principal, in AuditLogInput) (audit.Result, error) {
	f, err := auditFilters(in)
	if err != nil {
		return audit.Result{}, err
	}
	return h.audit.Log(ctx, f)
}

func (h *Handler) exportAuditLog(ctx context.Context, _ *rbac.Principal, in AuditLogInput) (AuditExport, error) {
	f, err := auditFilters(in)
	if err != nil {
		return AuditExport{}, err
	}
	data, err := h.audit.ExportCSV(ctx, f, auditExportLimit)
	if err != nil {
		return AuditExport{}, err
	}
	return AuditExport{Filename: "audit-log-" + h.now().UTC().Format("20060102") + ".csv", CSV: string(data)}, nil
}

func (h *Handler) globalSearch(ctx context.Context, p *rbac.Principal, in SearchInput) (SearchResult, error) {
	return h.search.Search(ctx, p, in)
}

// auditFilters converts day bounds into a half-open [from, to+1d) range.
func auditFilters(in AuditLogInput) (audit.Filters, error) {
	f := audit.Filters{
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		UserID:     in.UserID,
		Action:     audit.Action(in.Action),
		Page:       in.Page,
		PageSize:   in.PageSize,
	}
	if in.From != "" {
		from, err := time.Parse("2006-01-02", in.From)
		if err != nil {
			return audit.Filters{}, shared.FieldError("from", "must be a date in 2006-01-02 format")
		}
		f.From = from
	}
	if in.To != "" {
		to, err := time.Parse("2006-01-02", in.To)
		if err != nil {
			return audit.Filters{}, shared.FieldError("to", "must be a date in 2006-01-02 format")
		}
		f.To = to.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return audit.Filters{}, shared.FieldError("from", "must not be after to")
	}
	return f, nil
}
