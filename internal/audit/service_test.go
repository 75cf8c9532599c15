package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	rows       []Entry
	lastFilter Filters
	lastLimit  int
	lastOffset int
}

func (s *stubRepo) Search(ctx context.Context, f Filters, limit, offset int) ([]Entry, error) {
	s.lastFilter = f
	s.lastLimit = limit
	s.lastOffset = offset
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func seedEntries(n int) []Entry {
	out := make([]Entry, 0, n)
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, Entry{
			ID:         fmt.Sprintf("E%02d", i),
			UserID:     7,
			Action:     ActionUpdate,
			EntityType: "customer",
			EntityID:   fmt.Sprintf("%d", i),
			CreatedAt:  base.Add(-time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestServiceLogPaging(t *testing.T) {
	repo := &stubRepo{rows: seedEntries(3)}
	svc := NewService(repo)
	result, err := svc.Log(context.Background(), Filters{Page: 1, PageSize: 2, EntityType: "customer"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Equal(t, 3, repo.lastLimit)
	require.Equal(t, 0, repo.lastOffset)
	require.Equal(t, "customer", repo.lastFilter.EntityType)

	result, err = svc.Log(context.Background(), Filters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
}

func TestServiceLogCapsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)
	result, err := svc.Log(context.Background(), Filters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 100, result.Paging.PageSize)
	require.Equal(t, 101, repo.lastLimit)
	require.NotNil(t, result.Entries)
}

func TestServiceLogIsRepeatable(t *testing.T) {
	repo := &stubRepo{rows: seedEntries(5)}
	svc := NewService(repo)
	first, err := svc.Log(context.Background(), Filters{Page: 1, PageSize: 3})
	require.NoError(t, err)
	second, err := svc.Log(context.Background(), Filters{Page: 1, PageSize: 3})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestServiceExportCSV(t *testing.T) {
	repo := &stubRepo{rows: seedEntries(2)}
	svc := NewService(repo)
	data, err := svc.ExportCSV(context.Background(), Filters{}, 0)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "entity_type", records[0][5])
	require.Equal(t, "E00", records[1][0])
	require.Equal(t, 10000, repo.lastLimit)
}
