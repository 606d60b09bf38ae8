package mailtemplate

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
)

func credentialsProps() map[string]any {
	return map[string]any{
		"full_name":    "Jane Doe",
		"username":     "jd01",
		"password":     "x",
		"role_display": "Admin",
		"login_url":    "http://x",
	}
}

func TestRegistryRenderCredentials(t *testing.T) {
	t.Parallel()

	r := MustNewRegistry()

	subject, body, err := r.Render(UserCredentials, credentialsProps())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if subject != "Welcome to CRM System - Your Account Credentials" {
		t.Fatalf("subject = %q", subject)
	}
	for _, want := range []string{"Dear Jane Doe,", "Username: jd01", "Password: x", "Role: Admin", "Login URL: http://x"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRegistryRenderSubjectPlaceholders(t *testing.T) {
	t.Parallel()

	r := MustNewRegistry()
	props := map[string]any{
		"assignee_name":    "Sam",
		"task_title":       "Call ACME",
		"task_description": "Follow up on the quote",
		"due_date":         "2026-03-02",
		"status":           "pending",
		"days_overdue":     4,
		"due_date_text":    "Due Date: 2026-03-02",
		"priority":         "High",
		"login_url":        "http://x",
	}

	testCases := []struct {
		name        string
		template    string
		wantSubject string
		wantBody    string
	}{
		{name: "assignment", template: TaskAssignment, wantSubject: "New Task Assigned: Call ACME", wantBody: "Priority: High"},
		{name: "reminder", template: TaskReminder, wantSubject: "Task Reminder: Call ACME", wantBody: "Status: pending"},
		{name: "overdue", template: TaskOverdue, wantSubject: "Overdue Task: Call ACME", wantBody: "Days Overdue: 4"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			subject, body, err := r.Render(tc.template, props)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if subject != tc.wantSubject {
				t.Fatalf("subject = %q, want %q", subject, tc.wantSubject)
			}
			if !strings.Contains(body, tc.wantBody) {
				t.Fatalf("body missing %q:\n%s", tc.wantBody, body)
			}
		})
	}
}

func TestRegistryRenderUnknownTemplate(t *testing.T) {
	t.Parallel()

	_, _, err := MustNewRegistry().Render("weekly_digest", credentialsProps())
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Fatalf("Render() error = %v, want ErrTemplateNotFound", err)
	}
}

func TestRegistryRenderMissingProperty(t *testing.T) {
	t.Parallel()

	props := credentialsProps()
	delete(props, "password")

	_, _, err := MustNewRegistry().Render(UserCredentials, props)
	if !errors.Is(err, domain.ErrTemplateRender) {
		t.Fatalf("Render() error = %v, want ErrTemplateRender", err)
	}

	_, _, err = MustNewRegistry().Render(TaskReminder, nil)
	if !errors.Is(err, domain.ErrTemplateRender) {
		t.Fatalf("Render(nil props) error = %v, want ErrTemplateRender", err)
	}
}

func TestRegistryNames(t *testing.T) {
	t.Parallel()

	r := MustNewRegistry()
	got := strings.Join(r.Names(), ",")
	want := "task_assignment,task_overdue,task_reminder,user_credentials"
	if got != want {
		t.Fatalf("Names() = %s, want %s", got, want)
	}
	if !r.Has(TaskOverdue) || r.Has("nope") {
		t.Fatal("Has() returned unexpected result")
	}
}

func TestRegistryConcurrentRender(t *testing.T) {
	t.Parallel()

	r := MustNewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := r.Render(UserCredentials, credentialsProps()); err != nil {
				t.Errorf("Render() error = %v", err)
			}
		}()
	}
	wg.Wait()
}
