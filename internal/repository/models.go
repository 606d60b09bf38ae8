package repository

import (
	"encoding/json"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
)

// EmailJobModel is the persistence model for the email_jobs table.
type EmailJobModel struct {
	ID           string             `gorm:"type:uuid;primaryKey"`
	Recipient    string             `gorm:"type:varchar(320);not null"`
	Subject      string             `gorm:"type:text;not null"`
	Body         string             `gorm:"type:text;not null"`
	TemplateName string             `gorm:"type:varchar(64);not null"`
	TemplateData []byte             `gorm:"type:jsonb"`
	Status       domain.EmailStatus `gorm:"type:varchar(16);not null"`
	RetryCount   int                `gorm:"not null;default:0"`
	MaxRetries   int                `gorm:"not null;default:3"`
	ErrorMessage *string            `gorm:"type:text"`
	SentAt       *time.Time         `gorm:"type:timestamptz"`
	CreatedAt    time.Time          `gorm:"type:timestamptz;not null"`
	UpdatedAt    time.Time
}

func (EmailJobModel) TableName() string {
	return "email_jobs"
}

// UserModel is the persistence model for the users table.
type UserModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"type:varchar(320);not null;uniqueIndex"`
	FullName  string `gorm:"type:varchar(255);not null"`
	Username  string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Role      string `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// TaskModel is the persistence model for the tasks table.
type TaskModel struct {
	ID          string            `gorm:"type:uuid;primaryKey"`
	Title       string            `gorm:"type:varchar(255);not null"`
	Description string            `gorm:"type:text"`
	Status      domain.TaskStatus `gorm:"type:varchar(20);not null"`
	Priority    string            `gorm:"type:varchar(20);not null;default:'medium'"`
	DueDate     *time.Time        `gorm:"type:timestamptz"`
	AssignedTo  *string           `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (TaskModel) TableName() string {
	return "tasks"
}

func emailJobModelFromDomain(j *domain.EmailJob) (*EmailJobModel, error) {
	if j == nil {
		return nil, nil
	}

	var data []byte
	if j.TemplateData != nil {
		encoded, err := json.Marshal(j.TemplateData)
		if err != nil {
			return nil, err
		}
		data = encoded
	}

	return &EmailJobModel{
		ID:           j.ID,
		Recipient:    j.Recipient,
		Subject:      j.Subject,
		Body:         j.Body,
		TemplateName: j.TemplateName,
		TemplateData: data,
		Status:       j.Status,
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		ErrorMessage: j.ErrorMessage,
		SentAt:       j.SentAt,
		CreatedAt:    j.CreatedAt,
	}, nil
}

func emailJobModelToDomain(m *EmailJobModel) (*domain.EmailJob, error) {
	if m == nil {
		return nil, nil
	}

	var data map[string]any
	if len(m.TemplateData) > 0 {
		if err := json.Unmarshal(m.TemplateData, &data); err != nil {
			return nil, err
		}
	}

	return &domain.EmailJob{
		ID:           m.ID,
		Recipient:    m.Recipient,
		Subject:      m.Subject,
		Body:         m.Body,
		TemplateName: m.TemplateName,
		TemplateData: data,
		Status:       m.Status,
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		ErrorMessage: m.ErrorMessage,
		SentAt:       m.SentAt,
		CreatedAt:    m.CreatedAt,
	}, nil
}

func userModelFromDomain(u *domain.User) *UserModel {
	if u == nil {
		return nil
	}

	return &UserModel{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userModelToDomain(m *UserModel) *domain.User {
	if m == nil {
		return nil
	}

	return &domain.User{
		ID:        m.ID,
		Email:     m.Email,
		FullName:  m.FullName,
		Username:  m.Username,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func taskModelFromDomain(t *domain.Task) *TaskModel {
	if t == nil {
		return nil
	}

	return &TaskModel{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		AssignedTo:  nullableString(t.AssignedTo),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func taskModelToDomain(m *TaskModel) *domain.Task {
	if m == nil {
		return nil
	}

	return &domain.Task{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Status:      m.Status,
		Priority:    m.Priority,
		DueDate:     m.DueDate,
		AssignedTo:  derefString(m.AssignedTo),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
