package dto

import (
	"time"

	"github.com/google/uuid"
)

// CustomerRequest identifies a customer by its dedup key.
type CustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

// LocationRequest identifies a work site by its dedup key.
type LocationRequest struct {
	Address string  `json:"address" binding:"required"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// CreateTaskRequest represents the request body for creating a work order
type CreateTaskRequest struct {
	Title            string           `json:"title" binding:"required"`
	Description      string           `json:"description"`
	AssigneeIDs      []uuid.UUID      `json:"assignee_ids,omitempty"`
	Customer         *CustomerRequest `json:"customer,omitempty"`
	Location         *LocationRequest `json:"location,omitempty"`
	ScheduledAt      *time.Time       `json:"scheduled_at,omitempty"`
	ExpectedRevenue  *int64           `json:"expected_revenue,omitempty"`
	ExpectedCurrency string           `json:"expected_currency,omitempty"`
}

// UpdateTaskRequest represents the request body for updating a work order
type UpdateTaskRequest struct {
	Title            *string          `json:"title,omitempty"`
	Description      *string          `json:"description,omitempty"`
	Customer         *CustomerRequest `json:"customer,omitempty"`
	Location         *LocationRequest `json:"location,omitempty"`
	ScheduledAt      *time.Time       `json:"scheduled_at,omitempty"`
	ExpectedRevenue  *int64           `json:"expected_revenue,omitempty"`
	ExpectedCurrency *string          `json:"expected_currency,omitempty"`
}

// UpdateTaskStatusRequest represents the request body for a status transition
type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAssigneesRequest represents the request body for replacing the
// assignee set
type UpdateAssigneesRequest struct {
	AssigneeIDs []uuid.UUID `json:"assignee_ids"`
}

// CustomerResponse represents a linked customer in API responses
type CustomerResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// LocationResponse represents a linked work site in API responses
type LocationResponse struct {
	ID      uint    `json:"id"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// TaskResponse represents a work order in API responses
type TaskResponse struct {
	ID               uint              `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Status           string            `json:"status"`
	AssigneeIDs      []uuid.UUID       `json:"assignee_ids"`
	Customer         *CustomerResponse `json:"customer,omitempty"`
	Location         *LocationResponse `json:"location,omitempty"`
	ScheduledAt      *time.Time        `json:"scheduled_at,omitempty"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	ExpectedRevenue  *int64            `json:"expected_revenue,omitempty"`
	ExpectedCurrency string            `json:"expected_currency,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TaskListResponse represents one cursor page of work orders
type TaskListResponse struct {
	Tasks       []TaskResponse `json:"tasks"`
	NextCursor  string         `json:"next_cursor,omitempty"`
	HasNextPage bool           `json:"has_next_page"`
}

// TaskFilterRequest represents the query parameters for listing work orders
type TaskFilterRequest struct {
	Search          string   `form:"search"`
	Status          string   `form:"status"`
	AssignedUserIDs []string `form:"assigned_user_ids"`
	DateField       string   `form:"date_field"`
	DateFrom        string   `form:"date_from"`
	DateTo          string   `form:"date_to"`
	Cursor          string   `form:"cursor"`
	Take            int      `form:"take"`
	SortBy          string   `form:"sort_by"`
	SortOrder       string   `form:"sort_order"`
}

// ActivityResponse represents one audit record
type ActivityResponse struct {
	ID        uint                   `json:"id"`
	Topic     string                 `json:"topic"`
	Action    string                 `json:"action"`
	UserID    uuid.UUID              `json:"user_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
