package task

import (
	"context"
	"time"

	"github.com/duongdev/nv-internal-sub007/internal/domain/actor"
	"github.com/duongdev/nv-internal-sub007/internal/domain/customer"
	"github.com/duongdev/nv-internal-sub007/internal/infrastructure/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes task lifecycle events for downstream consumers.
// Publishing is best-effort: failures are logged, never surfaced.
type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, event *cache.TaskEvent) error
}

type Service interface {
	CreateTask(ctx context.Context, input CreateTaskInput, a actor.Actor) (*Task, error)
	GetTask(ctx context.Context, id uint, a actor.Actor) (*Task, error)
	ListTasks(ctx context.Context, filter TaskFilter, a actor.Actor) (*TaskPage, error)
	UpdateTask(ctx context.Context, id uint, input UpdateTaskInput, a actor.Actor) (*Task, error)
	UpdateAssignees(ctx context.Context, id uint, assigneeIDs []uuid.UUID, a actor.Actor) (*Task, error)
	TransitionStatus(ctx context.Context, id uint, target TaskStatus, a actor.Actor) (*Task, error)
	GetTaskActivities(ctx context.Context, id uint, a actor.Actor) ([]Activity, error)
}

// CustomerInput identifies a customer by its dedup key.
type CustomerInput struct {
	Name  string
	Phone string
}

// LocationInput identifies a work site by its dedup key.
type LocationInput struct {
	Address string
	Lat     float64
	Lng     float64
}

type CreateTaskInput struct {
	Title            string
	Description      string
	AssigneeIDs      []uuid.UUID
	Customer         *CustomerInput
	Location         *LocationInput
	ScheduledAt      *time.Time
	ExpectedRevenue  *int64
	ExpectedCurrency string
}

type UpdateTaskInput struct {
	Title            *string
	Description      *string
	Customer         *CustomerInput
	Location         *LocationInput
	ScheduledAt      *time.Time
	ExpectedRevenue  *int64
	ExpectedCurrency *string
}

// transitionSideEffects stamps timestamps on entry into a status. StartedAt
// and CompletedAt are set once and never cleared.
var transitionSideEffects = map[TaskStatus]func(t *Task, now time.Time){
	TaskStatusInProgress: func(t *Task, now time.Time) {
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
	},
	TaskStatusCompleted: func(t *Task, now time.Time) {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	},
}

type service struct {
	repo      TaskRepository
	customers customer.Repository
	policy    Policy
	events    EventPublisher
	logger    *zap.Logger
}

func NewService(repo TaskRepository, customers customer.Repository, events EventPublisher, logger *zap.Logger) Service {
	return &service{
		repo:      repo,
		customers: customers,
		policy:    NewPolicy(),
		events:    events,
		logger:    logger,
	}
}

func (s *service) CreateTask(ctx context.Context, input CreateTaskInput, a actor.Actor) (*Task, error) {
	if !s.policy.CanCreate(a) {
		return nil, newRoleRequiredError(actor.RoleAdmin)
	}
	if input.Title == "" {
		return nil, ErrInvalidInput
	}

	task := &Task{
		Title:            input.Title,
		Description:      input.Description,
		Status:           TaskStatusPreparing,
		AssigneeIDs:      UUIDSlice(input.AssigneeIDs),
		ScheduledAt:      input.ScheduledAt,
		ExpectedRevenue:  input.ExpectedRevenue,
		ExpectedCurrency: input.ExpectedCurrency,
	}
	if task.AssigneeIDs == nil {
		task.AssigneeIDs = UUIDSlice{}
	}

	if input.Customer != nil {
		cust, err := s.customers.FindOrCreateCustomer(ctx, input.Customer.Name, input.Customer.Phone)
		if err != nil {
			return nil, err
		}
		task.CustomerID = &cust.ID
		task.Customer = cust
	}
	if input.Location != nil {
		loc, err := s.customers.FindOrCreateLocation(ctx, input.Location.Address, input.Location.Lat, input.Location.Lng)
		if err != nil {
			return nil, err
		}
		task.GeoLocationID = &loc.ID
		task.GeoLocation = loc
	}

	task.SearchableText = s.composeSearchText(ctx, task)

	activity := newActivity(0, ActionTaskCreated, a.ID, map[string]interface{}{
		"title":  task.Title,
		"status": string(task.Status),
	})
	if err := s.repo.Create(ctx, task, activity); err != nil {
		return nil, err
	}

	s.publish(ctx, &cache.TaskEvent{
		Action: ActionTaskCreated,
		TaskID: task.ID,
		UserID: a.ID,
	})

	return task, nil
}

func (s *service) GetTask(ctx context.Context, id uint, a actor.Actor) (*Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(a, task) {
		return nil, newNotAssignedError()
	}
	return task, nil
}

func (s *service) ListTasks(ctx context.Context, filter TaskFilter, a actor.Actor) (*TaskPage, error) {
	if !s.policy.CanListAll(a) {
		// Workers are always scoped to themselves; the service injects the
		// scope rather than trusting the caller to.
		if len(filter.AssignedUserIDs) == 0 {
			filter.AssignedUserIDs = []uuid.UUID{a.ID}
		} else if len(filter.AssignedUserIDs) != 1 || filter.AssignedUserIDs[0] != a.ID {
			return nil, &ForbiddenError{
				Reason: ReasonRoleRequired,
				Detail: "workers may only list their own tasks",
			}
		}
	}
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateTask(ctx context.Context, id uint, input UpdateTaskInput, a actor.Actor) (*Task, error) {
	if !s.policy.CanManageAssignees(a) {
		return nil, newRoleRequiredError(actor.RoleAdmin)
	}

	// Resolve reference entities outside the row lock; they are deduplicated
	// and immutable, so the lookup cannot go stale.
	var cust *customer.Customer
	var loc *customer.GeoLocation
	var err error
	if input.Customer != nil {
		cust, err = s.customers.FindOrCreateCustomer(ctx, input.Customer.Name, input.Customer.Phone)
		if err != nil {
			return nil, err
		}
	}
	if input.Location != nil {
		loc, err = s.customers.FindOrCreateLocation(ctx, input.Location.Address, input.Location.Lat, input.Location.Lng)
		if err != nil {
			return nil, err
		}
	}

	task, err := s.repo.Transition(ctx, id, func(t *Task) (*Activity, error) {
		changed := make([]string, 0, 6)

		if input.Title != nil && *input.Title != t.Title {
			t.Title = *input.Title
			changed = append(changed, "title")
		}
		if input.Description != nil && *input.Description != t.Description {
			t.Description = *input.Description
			changed = append(changed, "description")
		}
		if cust != nil {
			t.CustomerID = &cust.ID
			t.Customer = cust
			changed = append(changed, "customer")
		}
		if loc != nil {
			t.GeoLocationID = &loc.ID
			t.GeoLocation = loc
			changed = append(changed, "geo_location")
		}
		if input.ScheduledAt != nil {
			t.ScheduledAt = input.ScheduledAt
			changed = append(changed, "scheduled_at")
		}
		if input.ExpectedRevenue != nil {
			t.ExpectedRevenue = input.ExpectedRevenue
			changed = append(changed, "expected_revenue")
		}
		if input.ExpectedCurrency != nil {
			t.ExpectedCurrency = *input.ExpectedCurrency
			changed = append(changed, "expected_currency")
		}

		// Any write touching a searchable field refreshes the composite in
		// the same transaction, so reads never observe a stale index.
		t.SearchableText = s.composeSearchText(ctx, t)

		return newActivity(t.ID, ActionTaskUpdated, a.ID, map[string]interface{}{
			"changed": changed,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, &cache.TaskEvent{
		Action: ActionTaskUpdated,
		TaskID: task.ID,
		UserID: a.ID,
	})

	return task, nil
}

func (s *service) UpdateAssignees(ctx context.Context, id uint, assigneeIDs []uuid.UUID, a actor.Actor) (*Task, error) {
	if !s.policy.CanManageAssignees(a) {
		return nil, newRoleRequiredError(actor.RoleAdmin)
	}

	task, err := s.repo.Transition(ctx, id, func(t *Task) (*Activity, error) {
		previous := t.AssigneeIDs
		next := UUIDSlice(assigneeIDs)
		if next == nil {
			next = UUIDSlice{}
		}
		t.AssigneeIDs = next

		return newActivity(t.ID, ActionAssigneesUpdated, a.ID, map[string]interface{}{
			"previous_assignee_ids": previous,
			"new_assignee_ids":      next,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, &cache.TaskEvent{
		Action: ActionAssigneesUpdated,
		TaskID: task.ID,
		UserID: a.ID,
	})

	return task, nil
}

func (s *service) TransitionStatus(ctx context.Context, id uint, target TaskStatus, a actor.Actor) (*Task, error) {
	if !target.IsValid() {
		return nil, ErrInvalidInput
	}

	task, err := s.repo.Transition(ctx, id, func(t *Task) (*Activity, error) {
		// The decision is made against the freshly locked row so it shares
		// the write's consistency boundary.
		if err := s.policy.CanTransition(a, t, target); err != nil {
			return nil, err
		}

		previous := t.Status
		t.Status = target
		if effect, ok := transitionSideEffects[target]; ok {
			effect(t, time.Now().UTC())
		}

		return newActivity(t.ID, ActionStatusChanged, a.ID, map[string]interface{}{
			"previous_status": string(previous),
			"new_status":      string(target),
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, &cache.TaskEvent{
		Action: ActionStatusChanged,
		TaskID: task.ID,
		UserID: a.ID,
		Details: map[string]interface{}{
			"status": string(task.Status),
		},
	})

	return task, nil
}

func (s *service) GetTaskActivities(ctx context.Context, id uint, a actor.Actor) ([]Activity, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(a, task) {
		return nil, newNotAssignedError()
	}
	return s.repo.ListActivities(ctx, TaskTopic(task.ID))
}

// composeSearchText builds the composite from the task's own fields plus the
// linked customer and location, loading them when only the ids are present.
func (s *service) composeSearchText(ctx context.Context, t *Task) string {
	fields := []string{t.Title, t.Description}

	cust := t.Customer
	if cust == nil && t.CustomerID != nil {
		if found, err := s.customers.FindCustomerByID(ctx, *t.CustomerID); err == nil {
			cust = found
		} else {
			s.logger.Warn("failed to load customer for search text",
				zap.Uint("task_id", t.ID),
				zap.Uint("customer_id", *t.CustomerID),
				zap.Error(err))
		}
	}
	if cust != nil {
		fields = append(fields, cust.Name, cust.Phone)
	}

	loc := t.GeoLocation
	if loc == nil && t.GeoLocationID != nil {
		if found, err := s.customers.FindLocationByID(ctx, *t.GeoLocationID); err == nil {
			loc = found
		} else {
			s.logger.Warn("failed to load location for search text",
				zap.Uint("task_id", t.ID),
				zap.Uint("geo_location_id", *t.GeoLocationID),
				zap.Error(err))
		}
	}
	if loc != nil {
		fields = append(fields, loc.Address)
	}

	return NormalizeSearchText(fields...)
}

func (s *service) publish(ctx context.Context, event *cache.TaskEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTaskEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish task event",
			zap.String("action", event.Action),
			zap.Uint("task_id", event.TaskID),
			zap.Error(err))
	}
}
