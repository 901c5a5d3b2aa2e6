package task

import (
	"context"
	"errors"
	"testing"

	"github.com/duongdev/nv-internal-sub007/internal/domain/customer"
	"github.com/duongdev/nv-internal-sub007/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTaskRepo struct {
	tasks      map[uint]*Task
	activities []Activity
	nextID     uint
	lastFilter *TaskFilter
	listPage   *TaskPage
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[uint]*Task{}}
}

func (r *fakeTaskRepo) Create(_ context.Context, task *Task, activity *Activity) error {
	r.nextID++
	task.ID = r.nextID
	row := *task
	r.tasks[task.ID] = &row
	activity.Topic = TaskTopic(task.ID)
	r.activities = append(r.activities, *activity)
	return nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, id uint) (*Task, error) {
	stored, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	row := *stored
	return &row, nil
}

func (r *fakeTaskRepo) List(_ context.Context, filter TaskFilter) (*TaskPage, error) {
	r.lastFilter = &filter
	if r.listPage != nil {
		return r.listPage, nil
	}
	return &TaskPage{Tasks: []Task{}}, nil
}

func (r *fakeTaskRepo) Transition(_ context.Context, id uint, apply func(t *Task) (*Activity, error)) (*Task, error) {
	stored, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	row := *stored
	activity, err := apply(&row)
	if err != nil {
		return nil, err
	}
	r.tasks[id] = &row
	r.activities = append(r.activities, *activity)
	out := row
	return &out, nil
}

func (r *fakeTaskRepo) ListActivities(_ context.Context, topic string) ([]Activity, error) {
	var out []Activity
	for _, a := range r.activities {
		if a.Topic == topic {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeCustomerRepo struct {
	customers map[string]*customer.Customer
	locations map[string]*customer.GeoLocation
	nextID    uint
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{
		customers: map[string]*customer.Customer{},
		locations: map[string]*customer.GeoLocation{},
	}
}

func (r *fakeCustomerRepo) FindOrCreateCustomer(_ context.Context, name, phone string) (*customer.Customer, error) {
	if name == "" {
		return nil, customer.ErrInvalidInput
	}
	key := name + "|" + phone
	if existing, ok := r.customers[key]; ok {
		return existing, nil
	}
	r.nextID++
	c := &customer.Customer{ID: r.nextID, Name: name, Phone: phone}
	r.customers[key] = c
	return c, nil
}

func (r *fakeCustomerRepo) FindCustomerByID(_ context.Context, id uint) (*customer.Customer, error) {
	for _, c := range r.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, customer.ErrCustomerNotFound
}

func (r *fakeCustomerRepo) FindOrCreateLocation(_ context.Context, address string, lat, lng float64) (*customer.GeoLocation, error) {
	if address == "" {
		return nil, customer.ErrInvalidInput
	}
	if existing, ok := r.locations[address]; ok {
		return existing, nil
	}
	r.nextID++
	l := &customer.GeoLocation{ID: r.nextID, Address: address, Lat: lat, Lng: lng}
	r.locations[address] = l
	return l, nil
}

func (r *fakeCustomerRepo) FindLocationByID(_ context.Context, id uint) (*customer.GeoLocation, error) {
	for _, l := range r.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, customer.ErrLocationNotFound
}

type fakeEvents struct {
	events []*cache.TaskEvent
}

func (f *fakeEvents) PublishTaskEvent(_ context.Context, event *cache.TaskEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestService() (Service, *fakeTaskRepo, *fakeEvents) {
	repo := newFakeTaskRepo()
	events := &fakeEvents{}
	svc := NewService(repo, newFakeCustomerRepo(), events, zap.NewNop())
	return svc, repo, events
}

func TestCreateTaskRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: "t"}, workerActor())
	require.Error(t, err)
	assert.Equal(t, ReasonRoleRequired, forbiddenReason(t, err))
}

func TestCreateTask(t *testing.T) {
	svc, repo, events := newTestService()
	admin := adminActor()

	created, err := svc.CreateTask(context.Background(), CreateTaskInput{
		Title:       "Sửa máy lạnh",
		Description: "tầng 3",
		Customer:    &CustomerInput{Name: "Chị Hương", Phone: "0901"},
		Location:    &LocationInput{Address: "123 Lê Duẩn", Lat: 16.07, Lng: 108.22},
	}, admin)
	require.NoError(t, err)

	assert.Equal(t, TaskStatusPreparing, created.Status)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "sua may lanh tang 3 chi huong 0901 123 le duan", created.SearchableText)

	require.Len(t, repo.activities, 1)
	assert.Equal(t, ActionTaskCreated, repo.activities[0].Action)
	assert.Equal(t, TaskTopic(created.ID), repo.activities[0].Topic)
	assert.Equal(t, admin.ID, repo.activities[0].UserID)

	require.Len(t, events.events, 1)
	assert.Equal(t, ActionTaskCreated, events.events[0].Action)
}

func TestCreateTaskEmptyTitle(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateTask(context.Background(), CreateTaskInput{}, adminActor())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTaskLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	admin := adminActor()
	assigned := workerActor()
	stranger := workerActor()

	ctx := context.Background()
	created, err := svc.CreateTask(ctx, CreateTaskInput{
		Title:       "Mua quạt trần",
		AssigneeIDs: []uuid.UUID{assigned.ID},
	}, admin)
	require.NoError(t, err)

	// The assigned worker cannot publish a draft.
	_, err = svc.TransitionStatus(ctx, created.ID, TaskStatusReady, assigned)
	assert.Equal(t, ReasonInvalidTransition, forbiddenReason(t, err))

	// Admin publishes it.
	updated, err := svc.TransitionStatus(ctx, created.ID, TaskStatusReady, admin)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusReady, updated.Status)

	// A worker who is not on the task cannot pick it up.
	_, err = svc.TransitionStatus(ctx, created.ID, TaskStatusInProgress, stranger)
	assert.Equal(t, ReasonNotAssigned, forbiddenReason(t, err))

	// The assigned worker starts work; the start timestamp is stamped once.
	updated, err = svc.TransitionStatus(ctx, created.ID, TaskStatusInProgress, assigned)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, updated.Status)
	require.NotNil(t, updated.StartedAt)
	assert.Nil(t, updated.CompletedAt)

	// And finishes it.
	updated, err = svc.TransitionStatus(ctx, created.ID, TaskStatusCompleted, assigned)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	// Completed is terminal for everyone.
	_, err = svc.TransitionStatus(ctx, created.ID, TaskStatusReady, admin)
	assert.Equal(t, ReasonInvalidTransition, forbiddenReason(t, err))

	// One audit record per state change, created plus three transitions.
	activities, err := svc.GetTaskActivities(ctx, created.ID, admin)
	require.NoError(t, err)
	assert.Len(t, activities, 4)
	assert.Equal(t, ActionStatusChanged, activities[3].Action)
}

func TestTransitionStatusUnknownTarget(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.TransitionStatus(context.Background(), 1, TaskStatus("DONE"), adminActor())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransitionStatusMissingTask(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.TransitionStatus(context.Background(), 42, TaskStatusReady, adminActor())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestGetTaskScoping(t *testing.T) {
	svc, _, _ := newTestService()
	admin := adminActor()
	assigned := workerActor()
	stranger := workerActor()

	ctx := context.Background()
	created, err := svc.CreateTask(ctx, CreateTaskInput{
		Title:       "t",
		AssigneeIDs: []uuid.UUID{assigned.ID},
	}, admin)
	require.NoError(t, err)

	_, err = svc.GetTask(ctx, created.ID, assigned)
	assert.NoError(t, err)

	_, err = svc.GetTask(ctx, created.ID, stranger)
	assert.Equal(t, ReasonNotAssigned, forbiddenReason(t, err))

	_, err = svc.GetTaskActivities(ctx, created.ID, stranger)
	assert.Equal(t, ReasonNotAssigned, forbiddenReason(t, err))
}

func TestListTasksWorkerScope(t *testing.T) {
	svc, repo, _ := newTestService()
	worker := workerActor()
	ctx := context.Background()

	// An unscoped worker request is narrowed to the worker's own id.
	_, err := svc.ListTasks(ctx, TaskFilter{}, worker)
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter)
	assert.Equal(t, []uuid.UUID{worker.ID}, repo.lastFilter.AssignedUserIDs)

	// Requesting a different scope is denied outright.
	_, err = svc.ListTasks(ctx, TaskFilter{AssignedUserIDs: []uuid.UUID{uuid.New()}}, worker)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))

	// Self-scoping explicitly is fine.
	_, err = svc.ListTasks(ctx, TaskFilter{AssignedUserIDs: []uuid.UUID{worker.ID}}, worker)
	assert.NoError(t, err)
}

func TestListTasksAdminUnscoped(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.ListTasks(context.Background(), TaskFilter{}, adminActor())
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter)
	assert.Empty(t, repo.lastFilter.AssignedUserIDs)
}

func TestUpdateAssignees(t *testing.T) {
	svc, repo, _ := newTestService()
	admin := adminActor()
	worker := workerActor()
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, CreateTaskInput{Title: "t"}, admin)
	require.NoError(t, err)

	_, err = svc.UpdateAssignees(ctx, created.ID, []uuid.UUID{worker.ID}, worker)
	assert.Equal(t, ReasonRoleRequired, forbiddenReason(t, err))

	updated, err := svc.UpdateAssignees(ctx, created.ID, []uuid.UUID{worker.ID}, admin)
	require.NoError(t, err)
	assert.True(t, updated.AssigneeIDs.Contains(worker.ID))
	assert.Equal(t, ActionAssigneesUpdated, repo.activities[len(repo.activities)-1].Action)

	// Clearing the set stores an empty slice, never null.
	updated, err = svc.UpdateAssignees(ctx, created.ID, nil, admin)
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeIDs)
	assert.Empty(t, updated.AssigneeIDs)
}

func TestUpdateTaskRefreshesSearchText(t *testing.T) {
	svc, repo, _ := newTestService()
	admin := adminActor()
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, CreateTaskInput{Title: "Sửa điều hòa"}, admin)
	require.NoError(t, err)
	assert.Equal(t, "sua dieu hoa", created.SearchableText)

	title := "Thay lọc gió"
	updated, err := svc.UpdateTask(ctx, created.ID, UpdateTaskInput{Title: &title}, admin)
	require.NoError(t, err)
	assert.Equal(t, "Thay lọc gió", updated.Title)
	assert.Equal(t, "thay loc gio", updated.SearchableText)
	assert.Equal(t, ActionTaskUpdated, repo.activities[len(repo.activities)-1].Action)
}

func TestUpdateTaskRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	title := "x"

	_, err := svc.UpdateTask(context.Background(), 1, UpdateTaskInput{Title: &title}, workerActor())
	assert.Equal(t, ReasonRoleRequired, forbiddenReason(t, err))
}
