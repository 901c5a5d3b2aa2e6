package task

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duongdev/nv-internal-sub007/internal/domain/customer"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPreparing  TaskStatus = "PREPARING"
	TaskStatusReady      TaskStatus = "READY"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusOnHold     TaskStatus = "ON_HOLD"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPreparing, TaskStatusReady, TaskStatusInProgress,
		TaskStatusOnHold, TaskStatusCompleted:
		return true
	}
	return false
}

type UUIDSlice []uuid.UUID

// Value implements the driver.Valuer interface for UUIDSlice
func (u UUIDSlice) Value() (driver.Value, error) {
	if len(u) == 0 {
		return "[]", nil
	}
	return json.Marshal(u)
}

// Scan implements the sql.Scanner interface for UUIDSlice
func (u *UUIDSlice) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, u)
	case string:
		return json.Unmarshal([]byte(v), u)
	default:
		return fmt.Errorf("failed to unmarshal UUIDSlice value: %v", value)
	}
}

// Contains reports whether id is in the slice. Order is irrelevant.
func (u UUIDSlice) Contains(id uuid.UUID) bool {
	for _, v := range u {
		if v == id {
			return true
		}
	}
	return false
}

// Task represents a field-service work order.
type Task struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status" gorm:"not null;default:'PREPARING';index:idx_task_status"`
	AssigneeIDs UUIDSlice  `json:"assignee_ids" gorm:"type:jsonb;default:'[]'"`

	CustomerID    *uint `json:"customer_id,omitempty" gorm:"index:idx_task_customer"`
	GeoLocationID *uint `json:"geo_location_id,omitempty"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty" gorm:"index:idx_task_scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Expected revenue in minor currency units, read by the payment component.
	ExpectedRevenue  *int64 `json:"expected_revenue,omitempty"`
	ExpectedCurrency string `json:"expected_currency,omitempty"`

	// SearchableText is the denormalized composite of title, description and
	// the linked customer/location fields. It is recomputed in the same write
	// as any change to the fields that feed it.
	SearchableText string `json:"-" gorm:"index:idx_task_searchable_text"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_task_created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	Customer    *customer.Customer    `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	GeoLocation *customer.GeoLocation `json:"geo_location,omitempty" gorm:"foreignKey:GeoLocationID"`
}

// TableName specifies the table name for the Task model
func (Task) TableName() string {
	return "tasks"
}

// Validate checks if the task data is valid
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrInvalidInput
	}
	if !t.Status.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// BeforeCreate is called before creating a new task record
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = TaskStatusPreparing
	}
	if t.AssigneeIDs == nil {
		t.AssigneeIDs = UUIDSlice{}
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	return t.Validate()
}

// BeforeUpdate is called before updating a task record
func (t *Task) BeforeUpdate(tx *gorm.DB) error {
	t.UpdatedAt = time.Now()
	return t.Validate()
}

// Activity action names.
const (
	ActionTaskCreated      = "task.created"
	ActionTaskUpdated      = "task.updated"
	ActionStatusChanged    = "task.status_changed"
	ActionAssigneesUpdated = "task.assignees_updated"
)

// Activity is an append-only audit record. One row is written per
// state-changing operation, in the same transaction as the mutation it
// describes. Rows are never updated or deleted.
type Activity struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Topic     string         `json:"topic" gorm:"not null;index:idx_activity_topic"`
	Action    string         `json:"action" gorm:"not null"`
	UserID    uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index:idx_activity_user"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
}

// TableName specifies the table name for the Activity model
func (Activity) TableName() string {
	return "activities"
}

// TaskTopic returns the activity topic for a task id.
func TaskTopic(taskID uint) string {
	return fmt.Sprintf("task:%d", taskID)
}

func newActivity(taskID uint, action string, userID uuid.UUID, payload map[string]interface{}) *Activity {
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte("{}")
	}
	return &Activity{
		Topic:     TaskTopic(taskID),
		Action:    action,
		UserID:    userID,
		Payload:   datatypes.JSON(body),
		CreatedAt: time.Now(),
	}
}
