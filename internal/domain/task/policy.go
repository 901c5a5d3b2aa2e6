package task

import (
	"github.com/duongdev/nv-internal-sub007/internal/domain/actor"
)

// transitionRule describes who may traverse a status edge. An edge that is
// not admin-only may also be driven by a worker assigned to the task.
type transitionRule struct {
	adminOnly bool
}

// transitionEdges is the full, fixed state graph. Any (from, to) pair absent
// here is rejected for every actor. COMPLETED has no outgoing edges.
var transitionEdges = map[TaskStatus]map[TaskStatus]transitionRule{
	TaskStatusPreparing: {
		TaskStatusReady: {adminOnly: true},
	},
	TaskStatusReady: {
		TaskStatusOnHold:     {adminOnly: true},
		TaskStatusInProgress: {adminOnly: false},
	},
	TaskStatusOnHold: {
		TaskStatusReady: {adminOnly: true},
	},
	TaskStatusInProgress: {
		TaskStatusOnHold:    {adminOnly: true},
		TaskStatusCompleted: {adminOnly: false},
	},
	TaskStatusCompleted: {},
}

// Policy is the permission evaluator. It is a pure decision component: it
// reads the actor and a task snapshot and never touches storage, so the
// caller is responsible for evaluating it against a fresh row inside the
// same transaction as any mutation it guards.
type Policy struct{}

func NewPolicy() Policy {
	return Policy{}
}

// CanCreate reports whether the actor may create tasks.
func (Policy) CanCreate(a actor.Actor) bool {
	return a.IsAdmin()
}

// CanListAll reports whether the actor may list tasks without an assignee
// scope. Workers must be scoped to their own id.
func (Policy) CanListAll(a actor.Actor) bool {
	return a.IsAdmin()
}

// CanView reports whether the actor may read the task.
func (Policy) CanView(a actor.Actor, t *Task) bool {
	return a.IsAdmin() || t.AssigneeIDs.Contains(a.ID)
}

// CanManageAssignees reports whether the actor may change the assignee set.
func (Policy) CanManageAssignees(a actor.Actor) bool {
	return a.IsAdmin()
}

// CanTransition returns nil when the actor may drive the task from its
// current status to target. Otherwise it returns a *ForbiddenError whose
// reason distinguishes "actor not assigned" from "edge not permitted".
func (Policy) CanTransition(a actor.Actor, t *Task, target TaskStatus) error {
	rule, ok := transitionEdges[t.Status][target]
	if !ok {
		return newInvalidTransitionError(t.Status, target)
	}
	if a.IsAdmin() {
		return nil
	}
	if !t.AssigneeIDs.Contains(a.ID) {
		return newNotAssignedError()
	}
	if rule.adminOnly {
		return newInvalidTransitionError(t.Status, target)
	}
	return nil
}
