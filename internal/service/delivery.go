package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/config"
	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"github.com/kursadbilgin/crm-mailer/internal/observability"
	"github.com/kursadbilgin/crm-mailer/internal/provider"
	"github.com/kursadbilgin/crm-mailer/internal/ratelimit"
	"go.uber.org/zap"
)

const failureReasonMissingCredentials = "missing_credentials"

// Deliverer performs one delivery attempt and records the outcome on the job.
type Deliverer interface {
	Deliver(ctx context.Context, job *domain.EmailJob) bool
}

var _ Deliverer = (*SMTPDeliverer)(nil)

// SMTPDeliverer sends jobs through an SMTP relay whose settings are re-read
// before every attempt.
type SMTPDeliverer struct {
	settings    config.SMTPSource
	mailer      provider.Mailer
	rateLimiter ratelimit.RateLimiter
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewSMTPDeliverer(
	settings config.SMTPSource,
	mailer provider.Mailer,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*SMTPDeliverer, error) {
	if settings == nil {
		return nil, fmt.Errorf("smtp settings source is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SMTPDeliverer{
		settings:    settings,
		mailer:      mailer,
		rateLimiter: rateLimiter,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (d *SMTPDeliverer) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Deliver never returns an error: failures are logged, counted and stored on
// the job as errorMessage/retryCount. When ctx ends before an attempt is
// made the job is left untouched.
func (d *SMTPDeliverer) Deliver(ctx context.Context, job *domain.EmailJob) bool {
	if job == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := d.now()
	err := d.send(ctx, job)
	if err != nil && aborted(ctx, err) {
		// No attempt was made; the job stays as it was.
		d.logger.Info("email delivery aborted", observability.EmailJob(job), zap.Error(err))
		return false
	}
	d.metrics.ObserveEmailSendDuration(d.now().Sub(start))

	if err == nil {
		job.MarkSent(d.now().UTC())
		d.metrics.IncEmailSent()
		d.logger.Info("email sent", observability.EmailJob(job))
		return true
	}

	job.MarkFailedAttempt(err)

	fields := []zap.Field{
		observability.EmailJob(job),
		zap.Int("maxRetries", job.MaxRetries),
		zap.Error(err),
	}
	if job.Status == domain.EmailStatusFailed {
		d.metrics.IncEmailFailed(failureReason(err))
		d.logger.Error("email delivery failed permanently", fields...)
		return false
	}

	d.metrics.IncEmailRetry()
	d.logger.Warn("email delivery failed, will retry", fields...)
	return false
}

func (d *SMTPDeliverer) send(ctx context.Context, job *domain.EmailJob) error {
	settings, err := d.settings.Reload()
	if err != nil {
		return fmt.Errorf("failed to load smtp settings: %w", err)
	}
	if !settings.HasCredentials() {
		return domain.ErrMissingCredentials
	}

	if d.rateLimiter != nil {
		if err := d.rateLimiter.Wait(ctx, ratelimit.ChannelEmail); err != nil {
			if !errors.Is(err, ratelimit.ErrUnavailable) {
				return fmt.Errorf("rate limiter wait failed: %w", err)
			}
			d.logger.Warn("rate limiter unavailable, sending unthrottled", observability.EmailJob(job), zap.Error(err))
		}
	}

	return d.mailer.Send(ctx, settings, provider.Message{
		From:    settings.Username,
		To:      job.Recipient,
		Subject: job.Subject,
		Body:    job.Body,
	})
}

// aborted reports whether err only reflects ctx ending before an SMTP
// session was opened.
func aborted(ctx context.Context, err error) bool {
	ctxErr := ctx.Err()
	return ctxErr != nil && errors.Is(err, ctxErr)
}

func failureReason(err error) string {
	if errors.Is(err, domain.ErrMissingCredentials) {
		return failureReasonMissingCredentials
	}
	return provider.FailureReason(err)
}
