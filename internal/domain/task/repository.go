package task

import (
	"context"
	"errors"

	"github.com/duongdev/nv-internal-sub007/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository defines the persistence boundary for work orders. Every
// state-changing method takes the mutation and its audit record together so
// they commit as one atomic unit: no observer may ever see a changed task
// without its activity row, or the reverse.
type TaskRepository interface {
	Create(ctx context.Context, task *Task, activity *Activity) error
	FindByID(ctx context.Context, id uint) (*Task, error)
	List(ctx context.Context, filter TaskFilter) (*TaskPage, error)

	// Transition re-fetches the task with a row lock, hands the fresh row to
	// apply (which re-evaluates permission and mutates it), then persists the
	// task and the returned activity in the same transaction. Evaluating
	// permission outside this boundary is a time-of-check/time-of-use gap.
	Transition(ctx context.Context, id uint, apply func(t *Task) (*Activity, error)) (*Task, error)

	ListActivities(ctx context.Context, topic string) ([]Activity, error)
}

type taskRepository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *Task, activity *Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		activity.Topic = TaskTopic(task.ID)
		return tx.Create(activity).Error
	})
}

func (r *taskRepository) FindByID(ctx context.Context, id uint) (*Task, error) {
	var task Task
	result := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("GeoLocation").
		First(&task, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) (*TaskPage, error) {
	compiled, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	q := compiled.apply(r.db.WithContext(ctx).Model(&Task{}))
	if err := q.Preload("Customer").Preload("GeoLocation").Find(&tasks).Error; err != nil {
		return nil, err
	}

	return compiled.page(tasks), nil
}

func (r *taskRepository) Transition(ctx context.Context, id uint, apply func(t *Task) (*Activity, error)) (*Task, error) {
	var out *Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, id)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return result.Error
		}

		activity, err := apply(&task)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&task).Error; err != nil {
			return err
		}
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		out = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepository) ListActivities(ctx context.Context, topic string) ([]Activity, error) {
	var activities []Activity
	err := r.db.WithContext(ctx).
		Where("topic = ?", topic).
		Order("created_at ASC").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
