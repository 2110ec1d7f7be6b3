// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskassign/constants"
	"taskassign/models"
	"taskassign/store"
)

// FakeStore is an in-memory implementation of store.UserDirectory and
// store.TaskStore for testing.
type FakeStore struct {
	mu     sync.Mutex
	users  map[uint]models.User
	tasks  map[uint]models.Task
	audits map[uint][]models.TaskAudit
	nextID uint

	// Error injection for testing
	ListErr   error
	MutateErr error
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		users:  map[uint]models.User{},
		tasks:  map[uint]models.Task{},
		audits: map[uint][]models.TaskAudit{},
	}
}

func (f *FakeStore) id() uint {
	f.nextID++
	return f.nextID
}

// AddUser seeds a user and returns it with its assigned ID.
func (f *FakeStore) AddUser(username string, isAdmin bool) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{ID: f.id(), Username: username, IsAdmin: isAdmin, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u
}

// Audits returns the recorded audit trail for a task.
func (f *FakeStore) Audits(taskID uint) []models.TaskAudit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TaskAudit(nil), f.audits[taskID]...)
}

// CreateUser implements store.UserDirectory.
func (f *FakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return store.ErrDuplicate
		}
	}
	user.ID = f.id()
	f.users[user.ID] = *user
	return nil
}

// FindUserByID implements store.UserDirectory.
func (f *FakeStore) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// FindUserByUsername implements store.UserDirectory.
func (f *FakeStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

// ListUsers implements store.UserDirectory.
func (f *FakeStore) ListUsers(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usersWhere(func(models.User) bool { return true }), nil
}

// ListNonAdminUsers implements store.UserDirectory.
func (f *FakeStore) ListNonAdminUsers(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usersWhere(func(u models.User) bool { return !u.IsAdmin }), nil
}

func (f *FakeStore) usersWhere(keep func(models.User) bool) []models.User {
	out := []models.User{}
	for _, u := range f.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateTask implements store.TaskStore.
func (f *FakeStore) CreateTask(_ context.Context, task *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	task.ID = f.id()
	task.CreatedAt, task.UpdatedAt = now, now
	f.tasks[task.ID] = *task
	f.audits[task.ID] = append(f.audits[task.ID], models.TaskAudit{
		TaskID: task.ID, Action: constants.AuditCreated, ActorID: task.CreatedByID, CreatedAt: now,
	})
	return nil
}

// GetTask implements store.TaskStore.
func (f *FakeStore) GetTask(_ context.Context, id uint) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.AuditTrail = append([]models.TaskAudit(nil), f.audits[id]...)
	return &t, nil
}

// ListTasksCreatedBy implements store.TaskStore.
func (f *FakeStore) ListTasksCreatedBy(_ context.Context, creatorID uint) ([]models.Task, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasksWhere(func(t models.Task) bool { return t.CreatedByID == creatorID }), nil
}

// ListAssignedTasks implements store.TaskStore.
func (f *FakeStore) ListAssignedTasks(_ context.Context, assigneeID uint, status constants.AcceptanceStatus) ([]models.Task, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasksWhere(func(t models.Task) bool {
		return t.AssignedToID == assigneeID &&
			f.users[t.CreatedByID].IsAdmin &&
			t.AcceptanceStatus == status
	}), nil
}

func (f *FakeStore) tasksWhere(keep func(models.Task) bool) []models.Task {
	out := []models.Task{}
	for _, t := range f.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MutateTask implements store.TaskStore. The whole call holds the store
// lock, standing in for the row lock of the real store.
func (f *FakeStore) MutateTask(_ context.Context, id, actorID uint, action string, fn store.MutateFunc) (*models.Task, error) {
	if f.MutateErr != nil {
		return nil, f.MutateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	working := t
	comment, err := fn(&working)
	if err != nil {
		return nil, err
	}
	f.tasks[id] = working
	f.audits[id] = append(f.audits[id], models.TaskAudit{
		TaskID: id, Action: action, ActorID: actorID, Comments: comment, CreatedAt: time.Now(),
	})
	return &working, nil
}

// DeleteTask implements store.TaskStore.
func (f *FakeStore) DeleteTask(_ context.Context, id uint) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.tasks, id)
	delete(f.audits, id)
	return &t, nil
}
