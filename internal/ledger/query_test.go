package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/ledger/internal/model"
)

func requireInvalidQuery(t *testing.T, err error) {
	t.Helper()
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), "expected *model.APIError, got %v", err)
	assert.Equal(t, model.ErrCodeInvalidQuery, apiErr.Code)
}

func TestBuildQuery_Defaults(t *testing.T) {
	q, err := BuildQuery("owner-1", ListParams{}, PageConfig{})
	require.NoError(t, err)

	assert.Equal(t, "owner-1", q.Filter.OwnerID)
	assert.True(t, q.Filter.From.IsZero())
	assert.True(t, q.Filter.To.IsZero())
	assert.Equal(t, model.SortByDateTime, q.SortField)
	assert.Equal(t, model.SortDesc, q.SortOrder)
	assert.Equal(t, 0, q.Skip)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, 1, PageOf(q))
}

func TestBuildQuery_SkipIsPageMinusOneTimesLimit(t *testing.T) {
	tests := []struct {
		page, limit string
		wantSkip    int
		wantLimit   int
	}{
		{"1", "10", 0, 10},
		{"2", "10", 10, 10},
		{"3", "25", 50, 25},
		{"7", "", 60, 10},
	}
	for _, tt := range tests {
		t.Run(tt.page+"x"+tt.limit, func(t *testing.T) {
			q, err := BuildQuery("owner-1", ListParams{Page: tt.page, Limit: tt.limit}, PageConfig{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSkip, q.Skip)
			assert.Equal(t, tt.wantLimit, q.Limit)
		})
	}
}

func TestBuildQuery_RejectsBadPagination(t *testing.T) {
	for _, p := range []ListParams{
		{Page: "0"},
		{Page: "-1"},
		{Page: "abc"},
		{Limit: "0"},
		{Limit: "1.5"},
		{Limit: "101"},
	} {
		_, err := BuildQuery("owner-1", p, PageConfig{})
		requireInvalidQuery(t, err)
	}
}

func TestBuildQuery_HonoursPageConfig(t *testing.T) {
	q, err := BuildQuery("owner-1", ListParams{}, PageConfig{DefaultLimit: 20, MaxLimit: 50})
	require.NoError(t, err)
	assert.Equal(t, 20, q.Limit)

	_, err = BuildQuery("owner-1", ListParams{Limit: "51"}, PageConfig{DefaultLimit: 20, MaxLimit: 50})
	requireInvalidQuery(t, err)
}

func TestBuildQuery_Sort(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		order     string
		wantField model.SortField
		wantOrder model.SortOrder
	}{
		{"未指定は日時の降順", "", "", model.SortByDateTime, model.SortDesc},
		{"フィールド指定時は昇順が既定", "amount", "", model.SortByAmount, model.SortAsc},
		{"降順を明示", "title", "desc", model.SortByTitle, model.SortDesc},
		{"順序のみ指定は日時に適用", "", "asc", model.SortByDateTime, model.SortAsc},
		{"作成日時で並び替え", "createdAt", "desc", model.SortByCreatedAt, model.SortDesc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := BuildQuery("owner-1", ListParams{SortField: tt.field, SortOrder: tt.order}, PageConfig{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantField, q.SortField)
			assert.Equal(t, tt.wantOrder, q.SortOrder)
		})
	}
}

func TestBuildQuery_RejectsUnknownSort(t *testing.T) {
	for _, p := range []ListParams{
		{SortField: "ownerId"},
		{SortField: "passwordHash"},
		{SortField: "amount", SortOrder: "DESC"},
		{SortOrder: "random"},
	} {
		_, err := BuildQuery("owner-1", p, PageConfig{})
		requireInvalidQuery(t, err)
	}
}

func TestBuildQuery_MonthIsCalendarMonth(t *testing.T) {
	tests := []struct {
		name     string
		month    string
		year     string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "3月は31日間",
			month:    "3",
			year:     "2024",
			wantFrom: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "閏年の2月は29日間",
			month:    "2",
			year:     "2024",
			wantFrom: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "4月は30日間で5月1日を含まない",
			month:    "04",
			year:     "2023",
			wantFrom: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "12月は翌年1月1日まで",
			month:    "12",
			year:     "2023",
			wantFrom: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := BuildQuery("owner-1", ListParams{Month: tt.month, Year: tt.year}, PageConfig{})
			require.NoError(t, err)
			assert.True(t, tt.wantFrom.Equal(q.Filter.From), "from = %v", q.Filter.From)
			assert.True(t, tt.wantTo.Equal(q.Filter.To), "to = %v", q.Filter.To)
		})
	}
}

func TestBuildQuery_RejectsBadDateFilters(t *testing.T) {
	for _, p := range []ListParams{
		{Month: "3"},
		{Year: "2024"},
		{Month: "13", Year: "2024"},
		{Month: "0", Year: "2024"},
		{Month: "march", Year: "2024"},
		{Month: "3", Year: "0"},
		{Month: "3", Year: "2024", From: "2024-03-01T00:00:00Z"},
		{From: "yesterday"},
		{To: "2024-03-01"},
		{From: "2024-03-02T00:00:00Z", To: "2024-03-01T00:00:00Z"},
	} {
		_, err := BuildQuery("owner-1", p, PageConfig{})
		requireInvalidQuery(t, err)
	}
}

func TestBuildQuery_ExplicitRangeAndEqualityFilters(t *testing.T) {
	q, err := BuildQuery("owner-1", ListParams{
		From:     "2024-03-01T09:00:00+09:00",
		To:       "2024-03-08T00:00:00Z",
		Type:     "expense",
		Category: "food",
	}, PageConfig{})
	require.NoError(t, err)

	assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Equal(q.Filter.From))
	assert.True(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC).Equal(q.Filter.To))
	assert.Equal(t, "expense", q.Filter.Type)
	assert.Equal(t, "food", q.Filter.Category)
	assert.Equal(t, "owner-1", q.Filter.OwnerID)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(1, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 3, TotalPages(25, 10))
	assert.Equal(t, 25, TotalPages(25, 1))
	assert.Equal(t, 0, TotalPages(5, 0))

	for total := int64(1); total <= 60; total++ {
		for limit := 1; limit <= 12; limit++ {
			pages := TotalPages(total, limit)
			assert.GreaterOrEqual(t, int64(pages*limit), total, "T=%d L=%d", total, limit)
			assert.Less(t, int64((pages-1)*limit), total, "T=%d L=%d", total, limit)
		}
	}
}
