package task

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

// dryRunDB builds queries without a live connection so the compiled SQL can
// be inspected.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)
	return db
}

func compileSQL(t *testing.T, filter TaskFilter) (string, []interface{}) {
	t.Helper()
	compiled, err := compileFilter(filter)
	require.NoError(t, err)

	var rows []Task
	stmt := compiled.apply(dryRunDB(t).Model(&Task{})).Find(&rows).Statement
	return stmt.SQL.String(), stmt.Vars
}

func TestCompileFilterDefaults(t *testing.T) {
	compiled, err := compileFilter(TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTake, compiled.take)
	assert.Equal(t, "created_at", compiled.sortCol)
	assert.False(t, compiled.desc)
}

func TestCompileFilterTakeBounds(t *testing.T) {
	tests := []struct {
		name     string
		take     int
		expected int
	}{
		{name: "Zero falls back to default", take: 0, expected: DefaultTake},
		{name: "Negative falls back to default", take: -5, expected: DefaultTake},
		{name: "In range passes through", take: 42, expected: 42},
		{name: "Above max is clamped", take: 500, expected: MaxTake},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := compileFilter(TaskFilter{Take: tt.take})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, compiled.take)
		})
	}
}

func TestCompileFilterValidation(t *testing.T) {
	tests := []struct {
		name   string
		filter TaskFilter
	}{
		{name: "Unknown sort field", filter: TaskFilter{SortBy: "revenue"}},
		{name: "Unknown sort order", filter: TaskFilter{SortOrder: "sideways"}},
		{name: "Unknown date field", filter: TaskFilter{DateField: "started_at", DateFrom: timePtr(time.Now())}},
		{name: "Garbage cursor", filter: TaskFilter{Cursor: "not/base64!"}},
		{name: "Cursor with bad timestamp", filter: TaskFilter{Cursor: encodeCursor(cursorToken{Sort: "yesterday", ID: 3})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileFilter(tt.filter)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestSearchIDCandidate(t *testing.T) {
	tests := []struct {
		raw string
		id  uint64
		ok  bool
	}{
		{raw: "123", id: 123, ok: true},
		{raw: " 45 ", id: 45, ok: true},
		{raw: "mua quat", ok: false},
		{raw: "12abc", ok: false},
		{raw: "-3", ok: false},
		{raw: "", ok: false},
	}
	for _, tt := range tests {
		id, ok := searchIDCandidate(tt.raw)
		assert.Equal(t, tt.ok, ok, "raw=%q", tt.raw)
		assert.Equal(t, tt.id, id, "raw=%q", tt.raw)
	}
}

func TestApplyNumericSearchAddsIDBranch(t *testing.T) {
	sql, vars := compileSQL(t, TaskFilter{Search: "123"})
	assert.Contains(t, sql, "searchable_text LIKE ? OR id = ?")
	assert.Contains(t, vars, "%123%")
	assert.Contains(t, vars, uint64(123))
}

func TestApplyPhraseSearchOmitsIDBranch(t *testing.T) {
	// A multi-word phrase has no id candidate. The id sub-condition must be
	// absent entirely, not present with a null operand.
	sql, vars := compileSQL(t, TaskFilter{Search: "Mua quạt trần"})
	assert.Contains(t, sql, "searchable_text LIKE ?")
	assert.NotContains(t, sql, "OR id")
	assert.Contains(t, vars, "%mua quat tran%")
}

func TestApplyEmptySearchHasNoSearchPredicate(t *testing.T) {
	sql, _ := compileSQL(t, TaskFilter{Search: "   "})
	assert.NotContains(t, sql, "searchable_text")
}

func TestApplyFilters(t *testing.T) {
	status := TaskStatusReady
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	sql, vars := compileSQL(t, TaskFilter{
		Status:          &status,
		AssignedUserIDs: []uuid.UUID{uuid.New()},
		DateField:       DateFieldScheduledAt,
		DateFrom:        &from,
		DateTo:          &to,
	})

	assert.Contains(t, sql, "status = ?")
	assert.Contains(t, sql, "jsonb_exists_any(assignee_ids, ?)")
	assert.Contains(t, sql, "scheduled_at >= ?")
	assert.Contains(t, sql, "scheduled_at < ?")
	assert.Contains(t, vars, TaskStatusReady)
}

func TestApplyCursorPredicate(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cursor := encodeCursor(cursorToken{Sort: at.Format(time.RFC3339Nano), ID: 17})

	sql, vars := compileSQL(t, TaskFilter{
		Cursor:    cursor,
		SortOrder: SortDesc,
	})

	assert.Contains(t, sql, "(created_at < ?) OR (created_at = ? AND id < ?)")
	assert.Contains(t, sql, "ORDER BY created_at DESC,id DESC")
	assert.Contains(t, vars, uint(17))
}

func TestApplyScheduledAtSortCoalescesNulls(t *testing.T) {
	// scheduled_at is nullable. The cursor predicate and the ordering must
	// both fold NULL into the zero-time sentinel, otherwise a page boundary
	// next to an unscheduled row skips every row after it.
	cursor := encodeCursor(cursorToken{
		Sort: time.Time{}.Format(time.RFC3339Nano),
		ID:   5,
	})

	sql, vars := compileSQL(t, TaskFilter{
		SortBy:    SortByScheduledAt,
		SortOrder: SortDesc,
		Cursor:    cursor,
	})

	expr := "COALESCE(scheduled_at, '0001-01-01 00:00:00+00')"
	assert.Contains(t, sql, "("+expr+" < ?) OR ("+expr+" = ? AND id < ?)")
	assert.Contains(t, sql, "ORDER BY "+expr+" DESC,id DESC")
	assert.NotContains(t, sql, "(scheduled_at < ?)")
	assert.Contains(t, vars, uint(5))
}

func TestPageScheduledAtNullRows(t *testing.T) {
	compiled, err := compileFilter(TaskFilter{
		SortBy:    SortByScheduledAt,
		SortOrder: SortDesc,
		Take:      1,
	})
	require.NoError(t, err)

	// Under the coalesced descending order an unscheduled row sorts last, so
	// it can end up as the boundary row of a page.
	page := compiled.page([]Task{{ID: 5}, {ID: 4}})
	require.True(t, page.HasNextPage)
	require.NotEmpty(t, page.NextCursor)

	token, err := decodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "0001-01-01T00:00:00Z", token.Sort)
	assert.Equal(t, uint(5), token.ID)

	// The emitted cursor must round-trip through validation so the next page
	// can actually be requested.
	next, err := compileFilter(TaskFilter{
		SortBy:    SortByScheduledAt,
		SortOrder: SortDesc,
		Cursor:    page.NextCursor,
	})
	require.NoError(t, err)
	require.NotNil(t, next.cursorAt)
	assert.True(t, next.cursorAt.IsZero())
}

func TestApplyCursorPredicateIDSort(t *testing.T) {
	cursor := encodeCursor(cursorToken{ID: 8})

	sql, _ := compileSQL(t, TaskFilter{
		Cursor: cursor,
		SortBy: SortByID,
	})

	assert.Contains(t, sql, "id > ?")
	assert.Contains(t, sql, "ORDER BY id")
	assert.NotContains(t, sql, "created_at")
}

func TestApplyLimitOverfetchesByOne(t *testing.T) {
	_, vars := compileSQL(t, TaskFilter{Take: 2})
	assert.Contains(t, vars, 3)
}

func TestPage(t *testing.T) {
	compiled, err := compileFilter(TaskFilter{Take: 2})
	require.NoError(t, err)

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := []Task{
		{ID: 1, CreatedAt: now},
		{ID: 2, CreatedAt: now.Add(time.Minute)},
		{ID: 3, CreatedAt: now.Add(2 * time.Minute)},
	}

	page := compiled.page(rows)
	require.Len(t, page.Tasks, 2)
	assert.True(t, page.HasNextPage)
	require.NotEmpty(t, page.NextCursor)

	token, err := decodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, uint(2), token.ID)

	ts, err := time.Parse(time.RFC3339Nano, token.Sort)
	require.NoError(t, err)
	assert.True(t, ts.Equal(now.Add(time.Minute)))
}

func TestPageLastPage(t *testing.T) {
	compiled, err := compileFilter(TaskFilter{Take: 5})
	require.NoError(t, err)

	page := compiled.page([]Task{{ID: 1}, {ID: 2}})
	assert.Len(t, page.Tasks, 2)
	assert.False(t, page.HasNextPage)
	assert.Empty(t, page.NextCursor)
}

func TestPageEmpty(t *testing.T) {
	compiled, err := compileFilter(TaskFilter{})
	require.NoError(t, err)

	page := compiled.page(nil)
	assert.NotNil(t, page.Tasks)
	assert.Empty(t, page.Tasks)
	assert.False(t, page.HasNextPage)
}

func TestCursorRoundTrip(t *testing.T) {
	token := cursorToken{Sort: "2026-05-01T00:00:00Z", ID: 99}
	decoded, err := decodeCursor(encodeCursor(token))
	require.NoError(t, err)
	assert.Equal(t, token, *decoded)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
