package domain

import (
	"fmt"
	"strings"
	"time"
)

// EmailStatus represents the lifecycle state of a queued email.
type EmailStatus string

const (
	EmailStatusPending  EmailStatus = "pending"
	EmailStatusSent     EmailStatus = "sent"
	EmailStatusFailed   EmailStatus = "failed"
	EmailStatusRetrying EmailStatus = "retry"
)

// DefaultMaxRetries is the number of failed attempts after which a job is failed.
const DefaultMaxRetries = 3

func (s EmailStatus) String() string { return string(s) }

func (s EmailStatus) IsValid() bool {
	switch s {
	case EmailStatusPending, EmailStatusSent, EmailStatusFailed, EmailStatusRetrying:
		return true
	}
	return false
}

// IsTerminal reports whether no further automatic transitions occur.
func (s EmailStatus) IsTerminal() bool {
	return s == EmailStatusSent || s == EmailStatusFailed
}

// IsDeliverable reports whether a job in this status is picked up by a processing pass.
func (s EmailStatus) IsDeliverable() bool {
	return s == EmailStatusPending || s == EmailStatusRetrying
}

func ParseEmailStatusFromString(s string) (EmailStatus, error) {
	st := EmailStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid email status %q", ErrValidation, s)
	}
	return st, nil
}

// DeliverableStatuses lists the statuses eligible for a delivery attempt.
func DeliverableStatuses() []EmailStatus {
	return []EmailStatus{EmailStatusPending, EmailStatusRetrying}
}

// EmailJob is one requested email delivery and its attempt history.
type EmailJob struct {
	ID           string
	Recipient    string
	Subject      string
	Body         string
	TemplateName string
	TemplateData map[string]any
	Status       EmailStatus
	CreatedAt    time.Time
	SentAt       *time.Time
	RetryCount   int
	MaxRetries   int
	ErrorMessage *string
}

// MarkSent records a successful delivery.
func (j *EmailJob) MarkSent(at time.Time) {
	sentAt := at
	j.Status = EmailStatusSent
	j.SentAt = &sentAt
	j.ErrorMessage = nil
}

// MarkFailedAttempt records a failed delivery and moves the job to retry or failed.
func (j *EmailJob) MarkFailedAttempt(err error) {
	msg := "unknown delivery error"
	if err != nil {
		msg = err.Error()
	}
	j.ErrorMessage = &msg
	j.SentAt = nil

	maxRetries := j.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if j.RetryCount < maxRetries {
		j.RetryCount++
	}

	if j.RetryCount >= maxRetries {
		j.Status = EmailStatusFailed
		return
	}
	j.Status = EmailStatusRetrying
}

// Clone returns a deep copy so stored jobs cannot be mutated through shared pointers.
func (j *EmailJob) Clone() *EmailJob {
	if j == nil {
		return nil
	}

	out := *j
	if j.SentAt != nil {
		sentAt := *j.SentAt
		out.SentAt = &sentAt
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		out.ErrorMessage = &msg
	}
	if j.TemplateData != nil {
		out.TemplateData = make(map[string]any, len(j.TemplateData))
		for k, v := range j.TemplateData {
			out.TemplateData[k] = v
		}
	}
	return &out
}

// QueueStats counts jobs by status.
type QueueStats struct {
	Total   int
	Pending int
	Sent    int
	Failed  int
	Retry   int
}

// Add increments the bucket for status by n.
func (s *QueueStats) Add(status EmailStatus, n int) {
	s.Total += n
	switch status {
	case EmailStatusPending:
		s.Pending += n
	case EmailStatusSent:
		s.Sent += n
	case EmailStatusFailed:
		s.Failed += n
	case EmailStatusRetrying:
		s.Retry += n
	}
}

// ProcessStats tallies the outcome of one processing pass.
type ProcessStats struct {
	Sent    int
	Failed  int
	Retried int
}
