package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/config"
	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"github.com/kursadbilgin/crm-mailer/internal/mailtemplate"
	"github.com/kursadbilgin/crm-mailer/internal/provider"
	"github.com/kursadbilgin/crm-mailer/internal/repository"
	"go.uber.org/zap"
)

type fakeMailer struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, settings config.SMTPConfig, msg provider.Message) error
	sent   []provider.Message
}

func (f *fakeMailer) Send(ctx context.Context, settings config.SMTPConfig, msg provider.Message) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, settings, msg)
	}
	return nil
}

func (f *fakeMailer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSMTPSource struct {
	reloadFn func() (config.SMTPConfig, error)
	reloads  int
}

func (f *fakeSMTPSource) Reload() (config.SMTPConfig, error) {
	f.reloads++
	if f.reloadFn != nil {
		return f.reloadFn()
	}
	return config.SMTPConfig{}, nil
}

func (f *fakeSMTPSource) Current() config.SMTPConfig {
	cfg, _ := f.Reload()
	return cfg
}

type fakeRateLimiter struct {
	waitFn func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}

type fakeDeliverer struct {
	mu        sync.Mutex
	deliverFn func(ctx context.Context, job *domain.EmailJob) bool
	delivered []string
}

func (f *fakeDeliverer) Deliver(ctx context.Context, job *domain.EmailJob) bool {
	f.mu.Lock()
	f.delivered = append(f.delivered, job.ID)
	f.mu.Unlock()
	if f.deliverFn != nil {
		return f.deliverFn(ctx, job)
	}
	job.MarkSent(time.Now())
	return true
}

func (f *fakeDeliverer) deliveredIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.delivered...)
}

type fakeLedger struct {
	mu       sync.Mutex
	claimFn  func(kind, taskID string, day time.Time) (bool, error)
	claims   map[string]bool
	released []string
}

func (f *fakeLedger) Claim(ctx context.Context, kind, taskID string, day time.Time) (bool, error) {
	if f.claimFn != nil {
		return f.claimFn(kind, taskID, day)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claims == nil {
		f.claims = make(map[string]bool)
	}
	key := kind + ":" + taskID + ":" + day.Format(time.DateOnly)
	if f.claims[key] {
		return false, nil
	}
	f.claims[key] = true
	return true, nil
}

func (f *fakeLedger) Release(ctx context.Context, kind, taskID string, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := kind + ":" + taskID + ":" + day.Format(time.DateOnly)
	delete(f.claims, key)
	f.released = append(f.released, key)
	return nil
}

func validSMTP() config.SMTPConfig {
	return config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "crm@example.com",
		Password: "abcdefghijklmnop",
	}
}

func newTestEmailService(t *testing.T, deliverer Deliverer) (*EmailService, *repository.MemoryEmailJobRepo) {
	t.Helper()

	repo := repository.NewMemoryEmailJobRepo()
	svc, err := NewEmailService(repo, mailtemplate.MustNewRegistry(), deliverer, "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	return svc, repo
}

func credentialsProps() map[string]any {
	return map[string]any{
		"full_name":    "Jane Doe",
		"username":     "jd01",
		"password":     "x",
		"role_display": "Sales Rep",
		"login_url":    DefaultLoginURL,
	}
}
