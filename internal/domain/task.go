package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the progress of a CRM task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) String() string { return string(s) }

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// IsClosed reports whether the task no longer needs reminders.
func (s TaskStatus) IsClosed() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

func ParseTaskStatusFromString(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid task status %q", ErrValidation, s)
	}
	return st, nil
}

// Task is a unit of work assigned to a CRM user.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      TaskStatus
	Priority    string
	DueDate     *time.Time
	AssignedTo  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is a CRM account that can receive notifications.
type User struct {
	ID        string
	Email     string
	FullName  string
	Username  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
