package service

import (
	"context"
	"strings"

	"github.com/kursadbilgin/crm-mailer/internal/mailtemplate"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultTaskPriority = "Medium"
	noDueDateText       = "No due date specified"
)

// CredentialsEmail describes a new account welcome message.
type CredentialsEmail struct {
	To       string
	FullName string
	Username string
	Password string
	Role     string
}

// TaskEmail describes a task notification. DueDate is preformatted
// (YYYY-MM-DD); empty means the task has none.
type TaskEmail struct {
	To           string
	AssigneeName string
	Title        string
	Description  string
	DueDate      string
	Priority     string
	Status       string
	DaysOverdue  int
}

func (s *EmailService) SendUserCredentials(ctx context.Context, e CredentialsEmail) (string, error) {
	return s.Enqueue(ctx, mailtemplate.UserCredentials, e.To, map[string]any{
		"full_name":    e.FullName,
		"username":     e.Username,
		"password":     e.Password,
		"role_display": RoleDisplay(e.Role),
		"login_url":    s.loginURL,
	})
}

func (s *EmailService) SendTaskAssignment(ctx context.Context, e TaskEmail) (string, error) {
	dueDateText := noDueDateText
	if strings.TrimSpace(e.DueDate) != "" {
		dueDateText = "Due Date: " + e.DueDate
	}
	priority := e.Priority
	if strings.TrimSpace(priority) == "" {
		priority = defaultTaskPriority
	}

	return s.Enqueue(ctx, mailtemplate.TaskAssignment, e.To, map[string]any{
		"assignee_name":    e.AssigneeName,
		"task_title":       e.Title,
		"task_description": e.Description,
		"due_date_text":    dueDateText,
		"priority":         priority,
		"login_url":        s.loginURL,
	})
}

func (s *EmailService) SendTaskReminder(ctx context.Context, e TaskEmail) (string, error) {
	return s.Enqueue(ctx, mailtemplate.TaskReminder, e.To, map[string]any{
		"assignee_name":    e.AssigneeName,
		"task_title":       e.Title,
		"task_description": e.Description,
		"due_date":         e.DueDate,
		"status":           e.Status,
		"login_url":        s.loginURL,
	})
}

func (s *EmailService) SendTaskOverdue(ctx context.Context, e TaskEmail) (string, error) {
	return s.Enqueue(ctx, mailtemplate.TaskOverdue, e.To, map[string]any{
		"assignee_name":    e.AssigneeName,
		"task_title":       e.Title,
		"task_description": e.Description,
		"due_date":         e.DueDate,
		"days_overdue":     e.DaysOverdue,
		"login_url":        s.loginURL,
	})
}

// RoleDisplay turns a role key such as "super_admin" into "Super Admin".
func RoleDisplay(role string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(role, "_", " "))
}
