package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"github.com/kursadbilgin/crm-mailer/internal/mailtemplate"
	"github.com/kursadbilgin/crm-mailer/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultOverdueNoticeHour = 9
	dueDateLayout            = time.DateOnly
)

// ReminderLedger records which notices were already queued for a task on a
// given day.
type ReminderLedger interface {
	Claim(ctx context.Context, kind, taskID string, day time.Time) (bool, error)
	Release(ctx context.Context, kind, taskID string, day time.Time) error
}

// TaskMailer queues task notification emails.
type TaskMailer interface {
	SendTaskReminder(ctx context.Context, e TaskEmail) (string, error)
	SendTaskOverdue(ctx context.Context, e TaskEmail) (string, error)
}

// ScanResult counts the notices queued by one scan.
type ScanResult struct {
	Reminders int
	Overdue   int
}

// ReminderScanner queues due-tomorrow reminders and overdue notices for open
// tasks.
type ReminderScanner struct {
	tasks       repository.TaskRepository
	users       repository.UserRepository
	mailer      TaskMailer
	ledger      ReminderLedger
	overdueHour int
	logger      *zap.Logger
	now         func() time.Time
}

func NewReminderScanner(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	mailer TaskMailer,
	overdueHour int,
	logger *zap.Logger,
) (*ReminderScanner, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task repository is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if overdueHour < 0 || overdueHour > 23 {
		overdueHour = DefaultOverdueNoticeHour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderScanner{
		tasks:       tasks,
		users:       users,
		mailer:      mailer,
		overdueHour: overdueHour,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// SetLedger enables once-per-day deduplication of notices.
func (s *ReminderScanner) SetLedger(ledger ReminderLedger) {
	if s == nil {
		return
	}
	s.ledger = ledger
}

// Scan evaluates every open task against the current time. Per-task
// failures are logged and skipped.
func (s *ReminderScanner) Scan(ctx context.Context) (ScanResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var result ScanResult
	tasks, err := s.tasks.ListOpen(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list open tasks: %w", err)
	}

	now := s.now()
	tomorrow := now.AddDate(0, 0, 1)

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		task := tasks[i]
		if task.Status.IsClosed() || task.DueDate == nil || task.AssignedTo == "" {
			continue
		}

		assignee, err := s.users.GetByID(ctx, task.AssignedTo)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.Error("failed to load task assignee",
					zap.String("taskId", task.ID),
					zap.String("userId", task.AssignedTo),
					zap.Error(err),
				)
			}
			continue
		}

		due := task.DueDate.In(now.Location())
		notice := TaskEmail{
			To:           assignee.Email,
			AssigneeName: assignee.FullName,
			Title:        task.Title,
			Description:  task.Description,
			DueDate:      due.Format(dueDateLayout),
			Status:       task.Status.String(),
		}

		switch {
		case sameDate(due, tomorrow) && task.Status == domain.TaskStatusPending:
			if s.notify(ctx, mailtemplate.TaskReminder, task.ID, now, func() (string, error) {
				return s.mailer.SendTaskReminder(ctx, notice)
			}) {
				result.Reminders++
			}

		case due.Before(now) && task.Status != domain.TaskStatusCompleted:
			daysOverdue := int(now.Sub(due) / dayDuration)
			if daysOverdue < 1 || now.Hour() != s.overdueHour {
				continue
			}
			notice.DaysOverdue = daysOverdue
			if s.notify(ctx, mailtemplate.TaskOverdue, task.ID, now, func() (string, error) {
				return s.mailer.SendTaskOverdue(ctx, notice)
			}) {
				result.Overdue++
			}
		}
	}

	return result, nil
}

func (s *ReminderScanner) notify(ctx context.Context, kind, taskID string, now time.Time, send func() (string, error)) bool {
	claimed := false
	if s.ledger != nil {
		ok, err := s.ledger.Claim(ctx, kind, taskID, now)
		switch {
		case err != nil:
			s.logger.Warn("reminder ledger unavailable, sending without dedupe",
				zap.String("taskId", taskID),
				zap.String("kind", kind),
				zap.Error(err),
			)
		case !ok:
			return false
		default:
			claimed = true
		}
	}

	emailID, err := send()
	if err != nil {
		s.logger.Error("failed to queue task notice",
			zap.String("taskId", taskID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		if claimed {
			if err := s.ledger.Release(ctx, kind, taskID, now); err != nil {
				s.logger.Warn("failed to release reminder ledger claim", zap.String("taskId", taskID), zap.Error(err))
			}
		}
		return false
	}

	s.logger.Info("task notice queued",
		zap.String("taskId", taskID),
		zap.String("kind", kind),
		zap.String("emailId", emailID),
	)
	return true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
