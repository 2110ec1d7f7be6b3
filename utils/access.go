package utils

import (
	"taskassign/constants"
	"taskassign/models"
)

type Capability int

const (
	CapCreateTask Capability = iota
	CapDeleteTask
	CapEditTaskFields // any field, not just status
	CapDecideTask     // accept or reject an assignment
	CapListPending
	CapListUsers
)

var capabilities = map[constants.Role]map[Capability]bool{
	constants.RoleAdmin: {
		CapCreateTask:     true,
		CapDeleteTask:     true,
		CapEditTaskFields: true,
		CapListUsers:      true,
	},
	constants.RoleMember: {
		CapDecideTask:  true,
		CapListPending: true,
	},
}

func Can(role constants.Role, c Capability) bool {
	return capabilities[role][c]
}

// CanAccessTask reports whether the user is on either end of the task.
func CanAccessTask(task models.Task, user models.User) bool {
	return task.CreatedByID == user.ID || task.AssignedToID == user.ID
}

// CanAssignTask reports whether assignee may receive a new task.
// Admins never receive tasks.
func CanAssignTask(assignee models.User) bool {
	return assignee.Role() != constants.RoleAdmin
}
