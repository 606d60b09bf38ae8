package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"github.com/kursadbilgin/crm-mailer/internal/mailtemplate"
	"github.com/kursadbilgin/crm-mailer/internal/observability"
	"github.com/kursadbilgin/crm-mailer/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultLoginURL = "http://localhost:3000/login"
	dayDuration     = 24 * time.Hour
)

// EmailService owns the email queue: enqueueing rendered jobs, processing
// passes and housekeeping.
type EmailService struct {
	jobs      repository.EmailJobRepository
	templates *mailtemplate.Registry
	deliverer Deliverer
	logger    *zap.Logger
	metrics   *observability.Metrics
	loginURL  string
	now       func() time.Time
	newID     func() string

	// processMu serialises processing passes and pruning.
	processMu sync.Mutex
}

func NewEmailService(
	jobs repository.EmailJobRepository,
	templates *mailtemplate.Registry,
	deliverer Deliverer,
	loginURL string,
	logger *zap.Logger,
) (*EmailService, error) {
	if jobs == nil {
		return nil, fmt.Errorf("email job repository is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template registry is required")
	}
	if deliverer == nil {
		return nil, fmt.Errorf("deliverer is required")
	}
	if strings.TrimSpace(loginURL) == "" {
		loginURL = DefaultLoginURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EmailService{
		jobs:      jobs,
		templates: templates,
		deliverer: deliverer,
		logger:    logger,
		loginURL:  loginURL,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

func (s *EmailService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// TemplateNames lists the registered template names in sorted order.
func (s *EmailService) TemplateNames() []string {
	return s.templates.Names()
}

// Enqueue renders templateName with props and stores a pending job.
// Template errors are returned as-is and no job is created.
func (s *EmailService) Enqueue(ctx context.Context, templateName, recipient string, props map[string]any) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}

	subject, body, err := s.templates.Render(templateName, props)
	if err != nil {
		return "", err
	}

	data := make(map[string]any, len(props))
	for k, v := range props {
		data[k] = v
	}

	job := &domain.EmailJob{
		ID:           s.newID(),
		Recipient:    recipient,
		Subject:      subject,
		Body:         body,
		TemplateName: templateName,
		TemplateData: data,
		Status:       domain.EmailStatusPending,
		CreatedAt:    s.now().UTC(),
		MaxRetries:   domain.DefaultMaxRetries,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to store email job: %w", err)
	}

	s.metrics.IncEmailQueued(templateName)
	observability.WithContextLogger(s.logger, ctx).Info("email queued", observability.EmailJob(job))

	return job.ID, nil
}

// GetStatus returns nil without error for unknown ids.
func (s *EmailService) GetStatus(ctx context.Context, id string) (*domain.EmailJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	job, err := s.jobs.GetByID(ctx, strings.TrimSpace(id))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *EmailService) Stats(ctx context.Context) (domain.QueueStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.jobs.CountByStatus(ctx)
}

// Prune removes jobs created at or before now-maxAgeDays unless they are
// still pending or awaiting retry.
func (s *EmailService) Prune(ctx context.Context, maxAgeDays int) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxAgeDays < 0 {
		return 0, fmt.Errorf("%w: max age days must not be negative", domain.ErrValidation)
	}

	s.processMu.Lock()
	defer s.processMu.Unlock()

	cutoff := s.now().UTC().Add(-time.Duration(maxAgeDays) * dayDuration)
	removed, err := s.jobs.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune email jobs: %w", err)
	}

	s.metrics.AddEmailsPruned(int(removed))
	s.logger.Info("email queue pruned",
		zap.Int64("removed", removed),
		zap.Int("maxAgeDays", maxAgeDays),
		zap.Time("cutoff", cutoff),
	)
	return int(removed), nil
}

// ProcessQueue attempts every pending or retry job once, in queue order.
// A cancelled context stops the pass before the next job.
func (s *EmailService) ProcessQueue(ctx context.Context) (domain.ProcessStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.processMu.Lock()
	defer s.processMu.Unlock()

	var stats domain.ProcessStats
	jobs, err := s.jobs.ListDeliverable(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list deliverable email jobs: %w", err)
	}

	// Attempt results are persisted even if ctx is cancelled mid-send.
	persistCtx := context.WithoutCancel(ctx)
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			s.logger.Info("email processing pass interrupted", zap.Int("remaining", len(jobs)-i))
			return stats, err
		}

		status, retries := job.Status, job.RetryCount
		if !s.deliverer.Deliver(ctx, job) && job.Status == status && job.RetryCount == retries {
			if err := ctx.Err(); err != nil {
				s.logger.Info("email processing pass interrupted", zap.Int("remaining", len(jobs)-i))
				return stats, err
			}
		}
		if err := s.jobs.Update(persistCtx, job); err != nil {
			s.logger.Error("failed to persist email job", observability.EmailJob(job), zap.Error(err))
		}

		switch job.Status {
		case domain.EmailStatusSent:
			stats.Sent++
		case domain.EmailStatusFailed:
			stats.Failed++
		case domain.EmailStatusRetrying:
			stats.Retried++
		}
	}

	if len(jobs) > 0 {
		s.logger.Info("email processing pass completed",
			zap.Int("sent", stats.Sent),
			zap.Int("failed", stats.Failed),
			zap.Int("retried", stats.Retried),
		)
	}
	return stats, nil
}
