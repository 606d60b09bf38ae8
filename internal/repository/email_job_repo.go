package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"gorm.io/gorm"
)

type EmailJobRepository interface {
	Create(ctx context.Context, job *domain.EmailJob) error
	GetByID(ctx context.Context, id string) (*domain.EmailJob, error)
	ListDeliverable(ctx context.Context) ([]*domain.EmailJob, error)
	Update(ctx context.Context, job *domain.EmailJob) error
	CountByStatus(ctx context.Context) (domain.QueueStats, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type statusCount struct {
	Status domain.EmailStatus `gorm:"column:status"`
	Count  int                `gorm:"column:count"`
}

type GormEmailJobRepo struct {
	db *gorm.DB
}

func NewGormEmailJobRepo(db *gorm.DB) *GormEmailJobRepo {
	return &GormEmailJobRepo{db: db}
}

func (r *GormEmailJobRepo) Create(ctx context.Context, job *domain.EmailJob) error {
	if job == nil {
		return fmt.Errorf("%w: email job is nil", domain.ErrValidation)
	}
	model, err := emailJobModelFromDomain(job)
	if err != nil {
		return fmt.Errorf("encode template data: %w", err)
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *GormEmailJobRepo) GetByID(ctx context.Context, id string) (*domain.EmailJob, error) {
	var model EmailJobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return emailJobModelToDomain(&model)
}

func (r *GormEmailJobRepo) ListDeliverable(ctx context.Context) ([]*domain.EmailJob, error) {
	var models []EmailJobModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", domain.DeliverableStatuses()).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]*domain.EmailJob, 0, len(models))
	for i := range models {
		job, err := emailJobModelToDomain(&models[i])
		if err != nil {
			return nil, fmt.Errorf("decode email job %s: %w", models[i].ID, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *GormEmailJobRepo) Update(ctx context.Context, job *domain.EmailJob) error {
	if job == nil {
		return fmt.Errorf("%w: email job is nil", domain.ErrValidation)
	}

	result := r.db.WithContext(ctx).
		Model(&EmailJobModel{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":        job.Status,
			"retry_count":   job.RetryCount,
			"error_message": job.ErrorMessage,
			"sent_at":       job.SentAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormEmailJobRepo) CountByStatus(ctx context.Context) (domain.QueueStats, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&EmailJobModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return domain.QueueStats{}, err
	}

	var stats domain.QueueStats
	for _, row := range rows {
		stats.Add(row.Status, row.Count)
	}
	return stats, nil
}

func (r *GormEmailJobRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at <= ? AND status NOT IN ?", cutoff, domain.DeliverableStatuses()).
		Delete(&EmailJobModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
