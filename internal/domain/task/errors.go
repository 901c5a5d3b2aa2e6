package task

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")

	// ErrConflict is reserved for concurrent-edit detection. Concurrency is
	// currently handled by transaction isolation alone.
	ErrConflict = errors.New("conflict")
)

// Denial reasons carried by ForbiddenError. Both are the same error kind but
// surface different detail for operator debugging.
const (
	ReasonNotAssigned       = "not_assigned"
	ReasonInvalidTransition = "invalid_transition"
	ReasonRoleRequired      = "role_required"
)

// ForbiddenError is a permission denial with a distinguishable reason.
type ForbiddenError struct {
	Reason string
	Detail string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden (%s): %s", e.Reason, e.Detail)
}

// Is makes errors.Is(err, ErrForbidden) true for every denial.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func newNotAssignedError() *ForbiddenError {
	return &ForbiddenError{
		Reason: ReasonNotAssigned,
		Detail: "actor is not assigned to this task",
	}
}

func newInvalidTransitionError(from, to TaskStatus) *ForbiddenError {
	return &ForbiddenError{
		Reason: ReasonInvalidTransition,
		Detail: fmt.Sprintf("transition %s -> %s is not permitted", from, to),
	}
}

func newRoleRequiredError(role string) *ForbiddenError {
	return &ForbiddenError{
		Reason: ReasonRoleRequired,
		Detail: fmt.Sprintf("%s role required", role),
	}
}
