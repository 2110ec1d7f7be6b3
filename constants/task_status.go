package constants

// Workflow status is free-form; this is only the value a new task starts with.
const TaskStatusDefault = "Pending"

type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "Pending"
	AcceptanceAccepted AcceptanceStatus = "Accepted"
	AcceptanceRejected AcceptanceStatus = "Rejected"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Audit actions recorded against a task.
const (
	AuditCreated  = "created"
	AuditAccepted = "accepted"
	AuditRejected = "rejected"
	AuditUpdated  = "updated"
)
