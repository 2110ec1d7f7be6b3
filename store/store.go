// Package store persists users and tasks and keeps the refresh-token denylist.
package store

import (
	"context"
	"errors"
	"time"

	"taskassign/constants"
	"taskassign/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserDirectory interface {
	// CreateUser returns ErrDuplicate when the username is taken.
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListNonAdminUsers(ctx context.Context) ([]models.User, error)
}

// MutateFunc validates and edits a task inside a store transaction. Returning
// an error rolls the transaction back and is passed through unchanged. The
// returned string is recorded as the audit comment.
type MutateFunc func(task *models.Task) (comment string, err error)

type TaskStore interface {
	// CreateTask inserts the task and its "created" audit entry.
	CreateTask(ctx context.Context, task *models.Task) error
	// GetTask loads a task with its audit trail.
	GetTask(ctx context.Context, id uint) (*models.Task, error)
	ListTasksCreatedBy(ctx context.Context, creatorID uint) ([]models.Task, error)
	// ListAssignedTasks returns tasks assigned to assigneeID whose creator is
	// an admin and whose acceptance status equals status.
	ListAssignedTasks(ctx context.Context, assigneeID uint, status constants.AcceptanceStatus) ([]models.Task, error)
	// MutateTask locks the row, applies fn, saves and audits atomically.
	MutateTask(ctx context.Context, id, actorID uint, action string, fn MutateFunc) (*models.Task, error)
	DeleteTask(ctx context.Context, id uint) (*models.Task, error)
}

type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
