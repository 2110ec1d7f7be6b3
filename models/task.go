package models

import (
	"time"

	"taskassign/constants"
)

type Task struct {
	ID               uint                       `gorm:"primaryKey" json:"id"`
	Title            string                     `gorm:"not null" json:"title"`
	Description      string                     `json:"description"`
	CreatedByID      uint                       `gorm:"not null;index" json:"created_by_id"`
	AssignedToID     uint                       `gorm:"not null;index" json:"assigned_to_id"`
	Priority         constants.Priority         `gorm:"size:16;not null;default:'Medium'" json:"priority"`
	Status           string                     `gorm:"not null;default:'Pending'" json:"status"`
	AcceptanceStatus constants.AcceptanceStatus `gorm:"size:16;not null;default:'Pending';index" json:"acceptance_status"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`

	CreatedBy  *User       `gorm:"foreignKey:CreatedByID" json:"-"`
	AssignedTo *User       `gorm:"foreignKey:AssignedToID" json:"-"`
	AuditTrail []TaskAudit `gorm:"foreignKey:TaskID" json:"audit_trail,omitempty"`
}
