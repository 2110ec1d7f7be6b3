package services

import (
	"fmt"
	"strings"

	"taskassign/constants"
	"taskassign/models"
)

// transitionAcceptance moves the task's acceptance status to `to`.
//
// Only re-asserting the current state is refused; Accepted -> Rejected and
// Rejected -> Accepted both go through.
func transitionAcceptance(task *models.Task, to constants.AcceptanceStatus) error {
	from := task.AcceptanceStatus
	if !isKnownAcceptance(from) {
		return fmt.Errorf("task %d has unknown acceptance status %q", task.ID, from)
	}
	if from == to {
		return conflict("Task already " + strings.ToLower(string(to)))
	}
	if to == constants.AcceptancePending {
		return newError(ErrConflict, "Task cannot return to %s", to)
	}
	task.AcceptanceStatus = to
	return nil
}

func isKnownAcceptance(s constants.AcceptanceStatus) bool {
	switch s {
	case constants.AcceptancePending, constants.AcceptanceAccepted, constants.AcceptanceRejected:
		return true
	default:
		return false
	}
}
