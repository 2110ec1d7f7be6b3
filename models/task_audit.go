package models

import "time"

// TaskAudit records one create/accept/reject/update of a task.
type TaskAudit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"index;not null" json:"task_id"`
	Action    string    `gorm:"size:32;not null" json:"action"`
	ActorID   uint      `gorm:"not null" json:"actor_id"`
	Actor     *User     `gorm:"foreignKey:ActorID" json:"-"`
	Comments  string    `gorm:"type:text" json:"comments,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
