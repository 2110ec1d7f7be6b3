package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskassign/constants"
	"taskassign/models"
)

// GormStore implements UserDirectory and TaskStore on a relational database.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", user.Username).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return ErrDuplicate
	}
	return translate(s.DB.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).Order("id").Find(&users).Error
	return users, err
}

func (s *GormStore) ListNonAdminUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).
		Where("is_admin = ?", false).
		Order("id").
		Find(&users).Error
	return users, err
}

func (s *GormStore) CreateTask(ctx context.Context, task *models.Task) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return translate(err)
		}
		return tx.Create(&models.TaskAudit{
			TaskID:  task.ID,
			Action:  constants.AuditCreated,
			ActorID: task.CreatedByID,
		}).Error
	})
}

func (s *GormStore) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := s.DB.WithContext(ctx).
		Preload("AuditTrail", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&task, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (s *GormStore) ListTasksCreatedBy(ctx context.Context, creatorID uint) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.DB.WithContext(ctx).
		Where("created_by_id = ?", creatorID).
		Order("id").
		Find(&tasks).Error
	return tasks, err
}

func (s *GormStore) ListAssignedTasks(ctx context.Context, assigneeID uint, status constants.AcceptanceStatus) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.DB.WithContext(ctx).
		Joins("JOIN users creators ON creators.id = tasks.created_by_id").
		Where("tasks.assigned_to_id = ? AND creators.is_admin = ? AND tasks.acceptance_status = ?",
			assigneeID, true, status).
		Order("tasks.id").
		Find(&tasks).Error
	return tasks, err
}

func (s *GormStore) MutateTask(ctx context.Context, id, actorID uint, action string, fn MutateFunc) (*models.Task, error) {
	var task models.Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&task, id).Error; err != nil {
			return translate(err)
		}

		comment, err := fn(&task)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&task).Error; err != nil {
			return translate(err)
		}
		return tx.Create(&models.TaskAudit{
			TaskID:   task.ID,
			Action:   action,
			ActorID:  actorID,
			Comments: comment,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	// re-read so callers see exactly what was committed
	if err := s.DB.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (s *GormStore) DeleteTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&task, id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAudit{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}
