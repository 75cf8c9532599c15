package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"
)

// Repository provides audit log reads.
type Repository interface {
	Search(ctx context.Context, f Filters, limit, offset int) ([]Entry, error)
}

// Service serves audit log queries.
type Service struct {
	repo Repository
}

// NewService builds an audit log query service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Log returns one page of entries matching filters.
func (s *Service) Log(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	rows, err := s.repo.Search(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []Entry{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Entries: rows, Paging: paging}, nil
}

// ExportCSV renders every entry matching filters, capped at limit rows.
func (s *Service) ExportCSV(ctx context.Context, filters Filters, limit int) ([]byte, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.repo.Search(ctx, filters, limit, 0)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "created_at", "user_id", "user", "action", "entity_type", "entity_id"})
	for _, e := range rows {
		_ = w.Write([]string{
			e.ID,
			e.CreatedAt.UTC().Format(time.RFC3339),
			ID(e.UserID),
			e.UserName,
			string(e.Action),
			e.EntityType,
			e.EntityID,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
