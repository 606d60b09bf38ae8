package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"gorm.io/gorm"
)

// TaskRepository reads CRM tasks that may need due date notices.
type TaskRepository interface {
	// ListOpen returns tasks that are not closed and have both an assignee and a due date.
	ListOpen(ctx context.Context) ([]domain.Task, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type GormTaskRepo struct {
	db *gorm.DB
}

func NewGormTaskRepo(db *gorm.DB) *GormTaskRepo {
	return &GormTaskRepo{db: db}
}

func (r *GormTaskRepo) ListOpen(ctx context.Context) ([]domain.Task, error) {
	var models []TaskModel
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []domain.TaskStatus{domain.TaskStatusCompleted, domain.TaskStatusCancelled}).
		Where("due_date IS NOT NULL").
		Where("assigned_to IS NOT NULL").
		Order("due_date ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, *taskModelToDomain(&models[i]))
	}
	return tasks, nil
}

type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userModelToDomain(&model), nil
}

// Create inserts a user. Used for seeding and tests.
func (r *GormUserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(userModelFromDomain(u)).Error
}

// Create inserts a task. Used for seeding and tests.
func (r *GormTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Create(taskModelFromDomain(t)).Error
}

// MemoryDirectory is an in-process task and user source, used when no
// database is configured.
type MemoryDirectory struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
	users map[string]domain.User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		tasks: make(map[string]domain.Task),
		users: make(map[string]domain.User),
	}
}

func (d *MemoryDirectory) PutTask(t domain.Task) error {
	if t.ID == "" {
		return fmt.Errorf("%w: task id is required", domain.ErrValidation)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: invalid task status %q", domain.ErrValidation, t.Status)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[t.ID] = t
	return nil
}

func (d *MemoryDirectory) PutUser(u domain.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
	return nil
}

func (d *MemoryDirectory) ListOpen(ctx context.Context) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.Task, 0, len(d.tasks))
	for _, t := range d.tasks {
		if t.Status.IsClosed() || t.DueDate == nil || t.AssignedTo == "" {
			continue
		}
		due := *t.DueDate
		t.DueDate = &due
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(*out[j].DueDate) {
			return out[i].DueDate.Before(*out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *MemoryDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}
