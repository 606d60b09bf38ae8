package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"gorm.io/gorm/schema"
)

func TestEmailJobModelConversionKeepsTemplateData(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	msg := "boom"
	job := &domain.EmailJob{
		ID:           "id-1",
		Recipient:    "a@example.com",
		Subject:      "s",
		Body:         "b",
		TemplateName: "task_assignment",
		TemplateData: map[string]any{"task_title": "Call", "priority": "high"},
		Status:       domain.EmailStatusSent,
		CreatedAt:    sentAt.Add(-time.Hour),
		SentAt:       &sentAt,
		RetryCount:   1,
		MaxRetries:   3,
		ErrorMessage: &msg,
	}

	model, err := emailJobModelFromDomain(job)
	if err != nil {
		t.Fatalf("emailJobModelFromDomain() error = %v", err)
	}
	if model.TableName() != "email_jobs" {
		t.Fatalf("TableName() = %q", model.TableName())
	}

	got, err := emailJobModelToDomain(model)
	if err != nil {
		t.Fatalf("emailJobModelToDomain() error = %v", err)
	}
	if got.TemplateData["task_title"] != "Call" || got.TemplateData["priority"] != "high" {
		t.Fatalf("template data = %v", got.TemplateData)
	}
	if got.Status != domain.EmailStatusSent || !got.SentAt.Equal(sentAt) || *got.ErrorMessage != "boom" {
		t.Fatalf("converted job = %+v", got)
	}
}

func TestEmailJobModelConversionNil(t *testing.T) {
	t.Parallel()

	model, err := emailJobModelFromDomain(nil)
	if err != nil || model != nil {
		t.Fatalf("emailJobModelFromDomain(nil) = %v, %v", model, err)
	}

	job, err := emailJobModelToDomain(&EmailJobModel{ID: "x"})
	if err != nil {
		t.Fatalf("emailJobModelToDomain() error = %v", err)
	}
	if job.TemplateData != nil {
		t.Fatalf("empty template data decoded to %v", job.TemplateData)
	}
}

func TestTaskModelConversionNullableAssignee(t *testing.T) {
	t.Parallel()

	model := taskModelFromDomain(&domain.Task{ID: "t1", Status: domain.TaskStatusPending})
	if model.AssignedTo != nil {
		t.Fatalf("AssignedTo = %v, want nil for unassigned task", *model.AssignedTo)
	}

	model = taskModelFromDomain(&domain.Task{ID: "t2", Status: domain.TaskStatusPending, AssignedTo: "u1"})
	if model.AssignedTo == nil || *model.AssignedTo != "u1" {
		t.Fatalf("AssignedTo = %v, want u1", model.AssignedTo)
	}
	if got := taskModelToDomain(model); got.AssignedTo != "u1" {
		t.Fatalf("round trip AssignedTo = %q", got.AssignedTo)
	}
}

func TestEmailJobModelRenderedColumnsAreUnbounded(t *testing.T) {
	t.Parallel()

	parsed, err := schema.Parse(&EmailJobModel{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("schema.Parse() error = %v", err)
	}

	for _, name := range []string{"Subject", "Body"} {
		field := parsed.LookUpField(name)
		if field == nil {
			t.Fatalf("field %s not found", name)
		}
		if field.DataType != "text" {
			t.Fatalf("%s column type = %q, want text so long task titles store like in memory", name, field.DataType)
		}
	}
}
