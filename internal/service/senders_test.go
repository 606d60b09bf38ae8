package service

import (
	"context"
	"strings"
	"testing"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"github.com/kursadbilgin/crm-mailer/internal/mailtemplate"
	"github.com/kursadbilgin/crm-mailer/internal/repository"
	"go.uber.org/zap"
)

func TestRoleDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role string
		want string
	}{
		{role: "super_admin", want: "Super Admin"},
		{role: "sales_rep", want: "Sales Rep"},
		{role: "ADMIN", want: "Admin"},
		{role: "viewer", want: "Viewer"},
		{role: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.role, func(t *testing.T) {
			t.Parallel()
			if got := RoleDisplay(tt.role); got != tt.want {
				t.Fatalf("RoleDisplay(%q) = %q, want %q", tt.role, got, tt.want)
			}
		})
	}
}

func TestSendUserCredentials(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryEmailJobRepo()
	svc, err := NewEmailService(repo, mailtemplate.MustNewRegistry(), &fakeDeliverer{}, "https://crm.example.com/login", zap.NewNop())
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	id, err := svc.SendUserCredentials(context.Background(), CredentialsEmail{
		To:       "jane@example.com",
		FullName: "Jane Doe",
		Username: "jd01",
		Password: "s3cret",
		Role:     "super_admin",
	})
	if err != nil {
		t.Fatalf("SendUserCredentials() error = %v", err)
	}

	job := mustGetJob(t, svc, id)
	if job.TemplateName != mailtemplate.UserCredentials {
		t.Fatalf("template = %s", job.TemplateName)
	}
	for _, want := range []string{
		"Dear Jane Doe,",
		"Username: jd01",
		"Password: s3cret",
		"Role: Super Admin",
		"Login URL: https://crm.example.com/login",
	} {
		if !strings.Contains(job.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, job.Body)
		}
	}
}

func TestSendTaskAssignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		email    TaskEmail
		contains []string
	}{
		{
			name: "with due date and priority",
			email: TaskEmail{
				To:           "jane@example.com",
				AssigneeName: "Jane",
				Title:        "Call ACME",
				Description:  "Discuss renewal",
				DueDate:      "2024-06-11",
				Priority:     "High",
			},
			contains: []string{"Due Date: 2024-06-11", "Priority: High", "Title: Call ACME"},
		},
		{
			name: "without due date uses defaults",
			email: TaskEmail{
				To:           "jane@example.com",
				AssigneeName: "Jane",
				Title:        "Call ACME",
			},
			contains: []string{"No due date specified", "Priority: Medium", "Login URL: " + DefaultLoginURL},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newTestEmailService(t, &fakeDeliverer{})
			id, err := svc.SendTaskAssignment(context.Background(), tt.email)
			if err != nil {
				t.Fatalf("SendTaskAssignment() error = %v", err)
			}

			job := mustGetJob(t, svc, id)
			if job.Subject != "New Task Assigned: Call ACME" {
				t.Fatalf("subject = %q", job.Subject)
			}
			for _, want := range tt.contains {
				if !strings.Contains(job.Body, want) {
					t.Fatalf("body missing %q:\n%s", want, job.Body)
				}
			}
		})
	}
}

func TestSendTaskReminderAndOverdue(t *testing.T) {
	t.Parallel()

	svc, _ := newTestEmailService(t, &fakeDeliverer{})
	ctx := context.Background()
	base := TaskEmail{
		To:           "jane@example.com",
		AssigneeName: "Jane",
		Title:        "Call ACME",
		Description:  "Discuss renewal",
		DueDate:      "2024-06-11",
		Status:       "pending",
		DaysOverdue:  4,
	}

	reminderID, err := svc.SendTaskReminder(ctx, base)
	if err != nil {
		t.Fatalf("SendTaskReminder() error = %v", err)
	}
	reminder := mustGetJob(t, svc, reminderID)
	if reminder.Subject != "Task Reminder: Call ACME" {
		t.Fatalf("reminder subject = %q", reminder.Subject)
	}
	if !strings.Contains(reminder.Body, "Status: pending") {
		t.Fatalf("reminder body missing status:\n%s", reminder.Body)
	}

	overdueID, err := svc.SendTaskOverdue(ctx, base)
	if err != nil {
		t.Fatalf("SendTaskOverdue() error = %v", err)
	}
	overdue := mustGetJob(t, svc, overdueID)
	if overdue.Subject != "Overdue Task: Call ACME" {
		t.Fatalf("overdue subject = %q", overdue.Subject)
	}
	if !strings.Contains(overdue.Body, "Days Overdue: 4") {
		t.Fatalf("overdue body missing days:\n%s", overdue.Body)
	}
}

func mustGetJob(t *testing.T, svc *EmailService, id string) *domain.EmailJob {
	t.Helper()

	job, err := svc.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus(%s) error = %v", id, err)
	}
	if job == nil {
		t.Fatalf("GetStatus(%s) = nil", id)
	}
	return job
}
