package finance

import (
	"context"

	"github.com/odyssey-erp/backoffice/internal/finance/statements"
	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/rpc"
)

// Handler exposes the finance.* procedures and the financial statements.
type Handler struct {
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register adds the finance procedures to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	view := rpc.Permission(rbac.PermFinanceView)
	create := rpc.Permission(rbac.PermFinanceCreate)
	edit := rpc.Permission(rbac.PermFinanceEdit)
	reports := rpc.Permission(rbac.PermReportsView)
	reg.Register(
		rpc.Query("finance.listAccounts", view, h.listAccounts),
		rpc.Mutation("finance.createAccount", create, h.createAccount),
		rpc.Query("finance.listJournalEntries", view, h.listJournalEntries),
		rpc.Query("finance.getJournalEntry", view, h.getJournalEntry),
		rpc.Mutation("finance.createJournalEntry", create, h.createJournalEntry),
		rpc.Mutation("finance.approveJournalEntry", edit, h.approveJournalEntry),
		rpc.Mutation("finance.postJournalEntry", edit, h.postJournalEntry),
		rpc.Mutation("finance.voidJournalEntry", rpc.Permission(rbac.PermFinanceDelete), h.voidJournalEntry),
		rpc.Query("finance.listFixedAssets", view, h.listFixedAssets),
		rpc.Mutation("finance.createFixedAsset", create, h.createFixedAsset),
		rpc.Mutation("finance.depreciateFixedAsset", edit, h.depreciateFixedAsset),
		rpc.Query("finance.listCurrencies", view, h.listCurrencies),
		rpc.Mutation("finance.upsertCurrency", edit, h.upsertCurrency),
		rpc.Query("reports.trialBalance", reports, h.trialBalance),
		rpc.Query("reports.balanceSheet", reports, h.balanceSheet),
		rpc.Query("reports.incomeStatement", reports, h.incomeStatement),
	)
}

func (h *Handler) listAccounts(ctx context.Context, _ *rbac.Principal, in AccountFilter) ([]Account, error) {
	return h.service.ListAccounts(ctx, in)
}

func (h *Handler) createAccount(ctx context.Context, p *rbac.Principal, in CreateAccountInput) (Account, error) {
	return h.service.CreateAccount(ctx, p.UserID, in)
}

func (h *Handler) listJournalEntries(ctx context.Context, _ *rbac.Principal, in JournalFilter) (JournalList, error) {
	return h.service.ListJournalEntries(ctx, in)
}

func (h *Handler) getJournalEntry(ctx context.Context, _ *rbac.Principal, in IDInput) (JournalEntry, error) {
	return h.service.GetJournalEntry(ctx, in.ID)
}

func (h *Handler) createJournalEntry(ctx context.Context, p *rbac.Principal, in CreateJournalInput) (JournalEntry, error) {
	return h.service.CreateJournalEntry(ctx, p.UserID, in)
}

func (h *Handler) approveJournalEntry(ctx context.Context, p *rbac.Principal, in IDInput) (JournalEntry, error) {
	return h.service.ApproveJournalEntry(ctx, p.UserID, in.ID)
}

func (h *Handler) postJournalEntry(ctx context.Context, p *rbac.Principal, in IDInput) (JournalEntry, error) {
	return h.service.PostJournalEntry(ctx, p.UserID, in.ID)
}

func (h *Handler) voidJournalEntry(ctx context.Context, p *rbac.Principal, in IDInput) (JournalEntry, error) {
	return h.service.VoidJournalEntry(ctx, p.UserID, in.ID)
}

func (h *Handler) listFixedAssets(ctx context.Context, _ *rbac.Principal, _ rpc.Empty) ([]FixedAsset, error) {
	return h.service.ListFixedAssets(ctx)
}

func (h *Handler) createFixedAsset(ctx context.Context, p *rbac.Principal, in CreateAssetInput) (FixedAsset, error) {
	return h.service.CreateFixedAsset(ctx, p.UserID, in)
}

func (h *Handler) depreciateFixedAsset(ctx context.Context, p *rbac.Principal, in DepreciateInput) (FixedAsset, error) {
	return h.service.DepreciateFixedAsset(ctx, p.UserID, in)
}

func (h *Handler) listCurrencies(ctx context.Context, _ *rbac.Principal, _ rpc.Empty) ([]Currency, error) {
	return h.service.ListCurrencies(ctx)
}

func (h *Handler) upsertCurrency(ctx context.Context, p *rbac.Principal, in UpsertCurrencyInput) (Currency, error) {
	return h.service.UpsertCurrency(ctx, p.UserID, in)
}

func (h *Handler) trialBalance(ctx context.Context, _ *rbac.Principal, in AsOfInput) (statements.TrialBalance, error) {
	return h.service.TrialBalance(ctx, in)
}

func (h *Handler) balanceSheet(ctx context.Context, _ *rbac.Principal, in AsOfInput) (statements.BalanceSheet, error) {
	return h.service.BalanceSheet(ctx, in)
}

func (h *Handler) incomeStatement(ctx context.Context, _ *rbac.Principal, in PeriodInput) (statements.IncomeStatement, error) {
	return h.service.IncomeStatement(ctx, in)
}
