package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskassign/constants"
	"taskassign/models"
	"taskassign/store"
	"taskassign/utils"
)

type CreateTaskInput struct {
	Title       string
	Description string
	AssignedTo  uint
	Priority    constants.Priority
}

// UpdateTaskInput is a partial update: nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *constants.Priority
	Status      *string
	AssignedTo  *uint
}

// TaskService enforces who may create, view, decide on, edit and delete tasks.
type TaskService struct {
	Users store.UserDirectory
	Tasks store.TaskStore
	now   func() time.Time
}

func NewTaskService(users store.UserDirectory, tasks store.TaskStore) *TaskService {
	return &TaskService{Users: users, Tasks: tasks, now: time.Now}
}

func (s *TaskService) CreateTask(ctx context.Context, caller *models.User, in CreateTaskInput) (*models.Task, error) {
	if !utils.Can(caller.Role(), utils.CapCreateTask) {
		return nil, forbidden("Only admin can create tasks")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, newError(ErrValidation, "Title is required")
	}
	priority := in.Priority
	if priority == "" {
		priority = constants.PriorityMedium
	}
	if !priority.Valid() {
		return nil, newError(ErrValidation, "Invalid priority %q", priority)
	}

	assignee, err := s.Users.FindUserByID(ctx, in.AssignedTo)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Assigned user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find assignee: %w", err)
	}
	if !utils.CanAssignTask(*assignee) {
		return nil, newError(ErrInvalidAssignment, "Cannot assign tasks to another admin")
	}

	task := &models.Task{
		Title:            title,
		Description:      in.Description,
		CreatedByID:      caller.ID,
		AssignedToID:     assignee.ID,
		Priority:         priority,
		Status:           constants.TaskStatusDefault,
		AcceptanceStatus: constants.AcceptancePending,
	}
	if err := s.Tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// ListTasks returns an admin's own pipeline, or the tasks a member has
// accepted from an admin.
func (s *TaskService) ListTasks(ctx context.Context, caller *models.User) ([]models.Task, error) {
	var (
		tasks []models.Task
		err   error
	)
	if caller.Role() == constants.RoleAdmin {
		tasks, err = s.Tasks.ListTasksCreatedBy(ctx, caller.ID)
	} else {
		tasks, err = s.Tasks.ListAssignedTasks(ctx, caller.ID, constants.AcceptanceAccepted)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) ListPendingTasks(ctx context.Context, caller *models.User) ([]models.Task, error) {
	if !utils.Can(caller.Role(), utils.CapListPending) {
		return nil, forbidden("Admins have no pending tasks")
	}
	tasks, err := s.Tasks.ListAssignedTasks(ctx, caller.ID, constants.AcceptancePending)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, caller *models.User, id uint) (*models.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !utils.CanAccessTask(*task, *caller) {
		return nil, forbidden("Not authorized to view this task")
	}
	return task, nil
}

func (s *TaskService) AcceptTask(ctx context.Context, caller *models.User, id uint) (*models.Task, error) {
	return s.decide(ctx, caller, id, constants.AcceptanceAccepted, constants.AuditAccepted)
}

func (s *TaskService) RejectTask(ctx context.Context, caller *models.User, id uint) (*models.Task, error) {
	return s.decide(ctx, caller, id, constants.AcceptanceRejected, constants.AuditRejected)
}

func (s *TaskService) decide(ctx context.Context, caller *models.User, id uint, to constants.AcceptanceStatus, action string) (*models.Task, error) {
	verb := "accept"
	if to == constants.AcceptanceRejected {
		verb = "reject"
	}
	task, err := s.Tasks.MutateTask(ctx, id, caller.ID, action, func(task *models.Task) (string, error) {
		if !utils.Can(caller.Role(), utils.CapDecideTask) {
			return "", forbidden(fmt.Sprintf("Admins cannot %s tasks", verb))
		}
		if task.AssignedToID != caller.ID {
			return "", forbidden(fmt.Sprintf("Not authorized to %s this task", verb))
		}
		if err := transitionAcceptance(task, to); err != nil {
			return "", err
		}
		task.UpdatedAt = s.now()
		return "", nil
	})
	return task, s.mutationError(err)
}

func (s *TaskService) UpdateTask(ctx context.Context, caller *models.User, id uint, in UpdateTaskInput) (*models.Task, error) {
	existing, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	isAdmin := utils.Can(caller.Role(), utils.CapEditTaskFields)
	if !isAdmin && existing.AssignedToID != caller.ID {
		return nil, forbidden("Not authorized to update this task")
	}
	if !isAdmin && in.Status == nil {
		return nil, forbidden("Employees can only update status")
	}

	// Reassignment only checks that the target exists; unlike CreateTask it
	// does not refuse admin assignees.
	if isAdmin && in.AssignedTo != nil {
		if _, err := s.Users.FindUserByID(ctx, *in.AssignedTo); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, notFound("Assigned user not found")
			}
			return nil, fmt.Errorf("find assignee: %w", err)
		}
	}

	task, err := s.Tasks.MutateTask(ctx, id, caller.ID, constants.AuditUpdated, func(task *models.Task) (string, error) {
		if !isAdmin && task.AssignedToID != caller.ID {
			return "", forbidden("Not authorized to update this task")
		}
		changed, err := applyUpdate(task, in, isAdmin)
		if err != nil {
			return "", err
		}
		task.UpdatedAt = s.now()
		return "changed: " + strings.Join(changed, ", "), nil
	})
	return task, s.mutationError(err)
}

// applyUpdate copies the present fields onto task. Members only get status;
// anything else they send is ignored.
func applyUpdate(task *models.Task, in UpdateTaskInput, isAdmin bool) ([]string, error) {
	var changed []string
	if in.Status != nil {
		task.Status = *in.Status
		changed = append(changed, "status")
	}
	if !isAdmin {
		return changed, nil
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, newError(ErrValidation, "Title cannot be empty")
		}
		task.Title = title
		changed = append(changed, "title")
	}
	if in.Description != nil {
		task.Description = *in.Description
		changed = append(changed, "description")
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, newError(ErrValidation, "Invalid priority %q", *in.Priority)
		}
		task.Priority = *in.Priority
		changed = append(changed, "priority")
	}
	if in.AssignedTo != nil {
		task.AssignedToID = *in.AssignedTo
		changed = append(changed, "assigned_to_id")
	}
	return changed, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, caller *models.User, id uint) (*models.Task, error) {
	if !utils.Can(caller.Role(), utils.CapDeleteTask) {
		return nil, forbidden("Only admin can delete tasks")
	}
	task, err := s.Tasks.DeleteTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return task, nil
}

func (s *TaskService) loadTask(ctx context.Context, id uint) (*models.Task, error) {
	task, err := s.Tasks.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	return task, nil
}

// mutationError passes typed errors through and names store failures.
func (s *TaskService) mutationError(err error) error {
	var svcErr *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return notFound("Task not found")
	default:
		return fmt.Errorf("mutate task: %w", err)
	}
}
