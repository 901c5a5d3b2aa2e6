package task

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type SortField string

const (
	SortByCreatedAt   SortField = "created_at"
	SortByScheduledAt SortField = "scheduled_at"
	SortByID          SortField = "id"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type DateField string

const (
	DateFieldCreatedAt   DateField = "created_at"
	DateFieldScheduledAt DateField = "scheduled_at"
	DateFieldCompletedAt DateField = "completed_at"
)

const (
	DefaultTake = 20
	MaxTake     = 100
)

// TaskFilter is the structured listing/search request.
type TaskFilter struct {
	Search          string
	Status          *TaskStatus
	AssignedUserIDs []uuid.UUID
	DateField       DateField
	DateFrom        *time.Time
	DateTo          *time.Time
	Cursor          string
	Take            int
	SortBy          SortField
	SortOrder       SortOrder
}

// TaskPage is one cursor page of results.
type TaskPage struct {
	Tasks       []Task `json:"tasks"`
	NextCursor  string `json:"next_cursor,omitempty"`
	HasNextPage bool   `json:"has_next_page"`
}

// cursorToken encodes the last-seen sort key and id. The id tiebreak keeps
// the page order total even when the sort column has duplicate values.
type cursorToken struct {
	Sort string `json:"s,omitempty"`
	ID   uint   `json:"id"`
}

func encodeCursor(t cursorToken) string {
	b, _ := json.Marshal(t)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (*cursorToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", ErrInvalidInput)
	}
	var t cursorToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", ErrInvalidInput)
	}
	return &t, nil
}

// searchIDCandidate reports whether the raw search input is a plain integer,
// in which case listing also matches the task id. The id sub-condition is
// added if and only if parsing succeeds: an equality comparison against a
// missing value flips from "match nothing" to "match everything" on some
// backends, which used to make multi-word phrase searches return empty.
func searchIDCandidate(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

var sortColumns = map[SortField]string{
	SortByCreatedAt:   "created_at",
	SortByScheduledAt: "scheduled_at",
	SortByID:          "id",
}

var dateColumns = map[DateField]string{
	DateFieldCreatedAt:   "created_at",
	DateFieldScheduledAt: "scheduled_at",
	DateFieldCompletedAt: "completed_at",
}

// scheduledAtSortExpr folds NULL into the zero time for sorting and cursor
// comparison. scheduled_at is nullable, and a raw comparison against NULL
// matches nothing, which would drop unscheduled rows between pages. The
// sentinel is the same value sortValue encodes for those rows, so the order
// the cursor sees and the order the query produces always agree.
const scheduledAtSortExpr = "COALESCE(scheduled_at, '0001-01-01 00:00:00+00')"

// compiledFilter is a validated TaskFilter ready to be applied to a query.
type compiledFilter struct {
	filter   TaskFilter
	take     int
	sortCol  string
	sortExpr string
	desc     bool
	cursor   *cursorToken
	cursorAt *time.Time
}

// compileFilter validates the request and resolves defaults. Malformed
// pagination input is a validation error; a malformed search string is not.
// Search never fails, it just matches by the rules it can apply.
func compileFilter(f TaskFilter) (*compiledFilter, error) {
	c := &compiledFilter{filter: f}

	c.take = f.Take
	if c.take <= 0 {
		c.take = DefaultTake
	}
	if c.take > MaxTake {
		c.take = MaxTake
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = SortByCreatedAt
	}
	col, ok := sortColumns[sortBy]
	if !ok {
		return nil, fmt.Errorf("unknown sort field %q: %w", f.SortBy, ErrInvalidInput)
	}
	c.sortCol = col
	c.sortExpr = col
	if col == "scheduled_at" {
		c.sortExpr = scheduledAtSortExpr
	}

	switch f.SortOrder {
	case "", SortAsc:
	case SortDesc:
		c.desc = true
	default:
		return nil, fmt.Errorf("unknown sort order %q: %w", f.SortOrder, ErrInvalidInput)
	}

	if f.DateFrom != nil || f.DateTo != nil {
		field := f.DateField
		if field == "" {
			field = DateFieldCreatedAt
		}
		if _, ok := dateColumns[field]; !ok {
			return nil, fmt.Errorf("unknown date field %q: %w", f.DateField, ErrInvalidInput)
		}
		c.filter.DateField = field
	}

	if f.Cursor != "" {
		cur, err := decodeCursor(f.Cursor)
		if err != nil {
			return nil, err
		}
		c.cursor = cur
		if c.sortCol != "id" {
			ts, err := time.Parse(time.RFC3339Nano, cur.Sort)
			if err != nil {
				return nil, fmt.Errorf("malformed cursor: %w", ErrInvalidInput)
			}
			c.cursorAt = &ts
		}
	}

	return c, nil
}

// apply compiles the filter into one composed predicate plus ordering and
// the page limit (take+1 to detect a next page).
func (c *compiledFilter) apply(q *gorm.DB) *gorm.DB {
	if search := NormalizeSearchText(c.filter.Search); search != "" {
		pattern := "%" + search + "%"
		if id, ok := searchIDCandidate(c.filter.Search); ok {
			q = q.Where("searchable_text LIKE ? OR id = ?", pattern, id)
		} else {
			q = q.Where("searchable_text LIKE ?", pattern)
		}
	}

	if c.filter.Status != nil {
		q = q.Where("status = ?", *c.filter.Status)
	}

	if len(c.filter.AssignedUserIDs) > 0 {
		ids := make([]string, len(c.filter.AssignedUserIDs))
		for i, id := range c.filter.AssignedUserIDs {
			ids[i] = id.String()
		}
		q = q.Where("jsonb_exists_any(assignee_ids, ?)", pq.Array(ids))
	}

	if c.filter.DateFrom != nil || c.filter.DateTo != nil {
		col := dateColumns[c.filter.DateField]
		if c.filter.DateFrom != nil {
			q = q.Where(col+" >= ?", *c.filter.DateFrom)
		}
		if c.filter.DateTo != nil {
			q = q.Where(col+" < ?", *c.filter.DateTo)
		}
	}

	op := ">"
	dir := "ASC"
	if c.desc {
		op = "<"
		dir = "DESC"
	}

	if c.cursor != nil {
		if c.sortCol == "id" {
			q = q.Where("id "+op+" ?", c.cursor.ID)
		} else {
			q = q.Where(
				"("+c.sortExpr+" "+op+" ?) OR ("+c.sortExpr+" = ? AND id "+op+" ?)",
				*c.cursorAt, *c.cursorAt, c.cursor.ID,
			)
		}
	}

	if c.sortCol == "id" {
		q = q.Order("id " + dir)
	} else {
		q = q.Order(c.sortExpr + " " + dir).Order("id " + dir)
	}

	return q.Limit(c.take + 1)
}

// page trims the over-fetched row and derives the next cursor.
func (c *compiledFilter) page(rows []Task) *TaskPage {
	page := &TaskPage{Tasks: rows}
	if len(rows) > c.take {
		page.Tasks = rows[:c.take]
		page.HasNextPage = true
	}
	if len(page.Tasks) > 0 && page.HasNextPage {
		last := page.Tasks[len(page.Tasks)-1]
		page.NextCursor = encodeCursor(cursorToken{
			Sort: c.sortValue(&last),
			ID:   last.ID,
		})
	}
	if page.Tasks == nil {
		page.Tasks = []Task{}
	}
	return page
}

func (c *compiledFilter) sortValue(t *Task) string {
	switch c.sortCol {
	case "created_at":
		return t.CreatedAt.UTC().Format(time.RFC3339Nano)
	case "scheduled_at":
		if t.ScheduledAt != nil {
			return t.ScheduledAt.UTC().Format(time.RFC3339Nano)
		}
		return time.Time{}.Format(time.RFC3339Nano)
	default:
		return ""
	}
}
