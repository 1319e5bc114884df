package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryAuditRepo struct {
	rows []TimelineRow
}

func (m *memoryAuditRepo) Window(_ context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	var matched []TimelineRow
	for _, row := range m.rows {
		if !filters.From.IsZero() && row.At.Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && !row.At.Before(filters.To) {
			continue
		}
		if filters.ActorID != 0 && row.ActorID != filters.ActorID {
			continue
		}
		if filters.Entity != "" && row.Entity != filters.Entity {
			continue
		}
		if filters.Action != "" && row.Action != filters.Action {
			continue
		}
		matched = append(matched, row)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func seededAuditRepo(n int) *memoryAuditRepo {
	repo := &memoryAuditRepo{}
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		repo.rows = append(repo.rows, TimelineRow{
			At:       base.Add(time.Duration(i) * time.Hour),
			ActorID:  int64(1 + i%2),
			Action:   "vehicle.update",
			Entity:   "vehicle",
			EntityID: "7",
		})
	}
	return repo
}

func TestTimelinePaging(t *testing.T) {
	svc := NewService(seededAuditRepo(25))

	first, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Len(t, first.Rows, 20)
	require.True(t, first.Paging.HasNext)
	require.Equal(t, 2, first.Paging.NextPage)
	require.Zero(t, first.Paging.PrevPage)

	second, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2})
	require.NoError(t, err)
	require.Len(t, second.Rows, 5)
	require.False(t, second.Paging.HasNext)
	require.Equal(t, 1, second.Paging.PrevPage)
}

func TestTimelineClampsPageSize(t *testing.T) {
	svc := NewService(seededAuditRepo(60))

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Rows, 50)
	require.Equal(t, 50, result.Paging.PageSize)
}

func TestTimelineFiltersByActor(t *testing.T) {
	svc := NewService(seededAuditRepo(10))

	result, err := svc.Timeline(context.Background(), TimelineFilters{ActorID: 1})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	for _, row := range result.Rows {
		require.EqualValues(t, 1, row.ActorID)
	}
}
