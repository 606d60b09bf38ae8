package observability

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "crm-mailer"

type correlationIDKey struct{}

// NewLogger builds the JSON logger for LOG_LEVEL. Blank means info.
func NewLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if raw := strings.TrimSpace(level); raw != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.AddCaller(), zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok && id != ""
}

// WithContextLogger tags logger with the request's correlation id, if any.
// A nil logger yields a no-op logger.
func WithContextLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	if id, ok := CorrelationIDFromContext(ctx); ok {
		return logger.With(zap.String("correlationId", id))
	}
	return logger
}

// EmailJob flattens the identifying fields of a job into the log entry:
// emailId, recipient (masked), template, status and retryCount.
func EmailJob(job *domain.EmailJob) zap.Field {
	return zap.Inline(emailJobFields{job: job})
}

type emailJobFields struct {
	job *domain.EmailJob
}

func (f emailJobFields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if f.job == nil {
		return nil
	}
	enc.AddString("emailId", f.job.ID)
	enc.AddString("recipient", MaskRecipient(f.job.Recipient))
	enc.AddString("template", f.job.TemplateName)
	enc.AddString("status", f.job.Status.String())
	enc.AddInt("retryCount", f.job.RetryCount)
	return nil
}

// MaskRecipient keeps the first character of the local part and the whole
// domain, so jane@example.com logs as j***@example.com.
func MaskRecipient(addr string) string {
	addr = strings.TrimSpace(addr)
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return MaskSecret(addr)
	}
	return addr[:1] + "***" + addr[at:]
}

// MaskSecret keeps the first four characters of a credential for log output.
func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
