package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/crm-mailer/internal/config"
	"github.com/kursadbilgin/crm-mailer/internal/domain"
	"github.com/kursadbilgin/crm-mailer/internal/mailtemplate"
)

const defaultPruneDays = 7

type EmailService interface {
	Enqueue(ctx context.Context, templateName, recipient string, props map[string]any) (string, error)
	GetStatus(ctx context.Context, id string) (*domain.EmailJob, error)
	Stats(ctx context.Context) (domain.QueueStats, error)
	Prune(ctx context.Context, maxAgeDays int) (int, error)
	ProcessQueue(ctx context.Context) (domain.ProcessStats, error)
	TemplateNames() []string
}

type EmailHandler struct {
	service  EmailService
	smtp     config.SMTPSource
	loginURL string
}

func NewEmailHandler(service EmailService, smtp config.SMTPSource, loginURL string) (*EmailHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if smtp == nil {
		return nil, fmt.Errorf("smtp settings source is required")
	}
	return &EmailHandler{service: service, smtp: smtp, loginURL: loginURL}, nil
}

func RegisterEmailRoutes(router fiber.Router, h *EmailHandler, jwtSecret []byte) error {
	if h == nil {
		return fmt.Errorf("email handler is required")
	}
	if len(jwtSecret) == 0 {
		return fmt.Errorf("jwt secret is required")
	}

	admins := RequireRole(RoleAdmin, RoleSuperAdmin)
	superAdmin := RequireRole(RoleSuperAdmin)

	emails := router.Group("/v1/emails", RequireAuth(jwtSecret))
	emails.Post("/", admins, h.SendEmail)
	emails.Delete("/", superAdmin, h.ClearOldEmails)
	emails.Post("/process", superAdmin, h.ProcessQueue)
	emails.Get("/stats", admins, h.QueueStats)
	emails.Get("/templates", admins, h.ListTemplates)
	emails.Get("/config", superAdmin, h.ConfigStatus)
	emails.Post("/test", superAdmin, h.TestConfiguration)
	emails.Get("/:id", h.GetEmailStatus)

	return nil
}

type sendEmailRequest struct {
	TemplateName string         `json:"templateName"`
	Recipient    string         `json:"recipient"`
	TemplateData map[string]any `json:"templateData"`
}

type sendEmailResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type emailResponse struct {
	ID           string     `json:"id"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject"`
	TemplateName string     `json:"templateName"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	SentAt       *time.Time `json:"sentAt"`
	RetryCount   int        `json:"retryCount"`
	MaxRetries   int        `json:"maxRetries"`
	ErrorMessage *string    `json:"errorMessage"`
}

type processStatsResponse struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Retried int `json:"retried"`
}

type queueStatsResponse struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Retry   int `json:"retry"`
}

type configStatusResponse struct {
	Host                         string             `json:"host"`
	Port                         int                `json:"port"`
	Username                     string             `json:"username"`
	PasswordConfigured           bool               `json:"passwordConfigured"`
	PasswordLooksLikeAppPassword bool               `json:"passwordLooksLikeAppPassword"`
	QueueStats                   queueStatsResponse `json:"queueStats"`
	Instructions                 []string           `json:"instructions"`
}

var appPasswordInstructions = []string{
	"Open the Google Account settings of the sending mailbox",
	"Select Security and enable 2-Step Verification",
	"Create an App password for Mail",
	"Set EMAIL_PASS to the 16 character app password",
}

func (h *EmailHandler) SendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.TemplateName) == "" {
		return toHTTPError(fmt.Errorf("%w: templateName is required", domain.ErrValidation))
	}

	id, err := h.service.Enqueue(c.UserContext(), req.TemplateName, req.Recipient, req.TemplateData)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(sendEmailResponse{
		ID:      id,
		Status:  "queued",
		Message: "Email queued successfully",
	})
}

func (h *EmailHandler) ProcessQueue(c *fiber.Ctx) error {
	stats, err := h.service.ProcessQueue(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Email queue processed",
		"stats":   toProcessStatsResponse(stats),
	})
}

func (h *EmailHandler) GetEmailStatus(c *fiber.Ctx) error {
	job, err := h.service.GetStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	if job == nil {
		return fiber.NewError(fiber.StatusNotFound, "email not found")
	}

	return c.Status(fiber.StatusOK).JSON(toEmailResponse(job))
}

func (h *EmailHandler) QueueStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"queueStats": toQueueStatsResponse(stats),
	})
}

func (h *EmailHandler) ClearOldEmails(c *fiber.Ctx) error {
	days := defaultPruneDays
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return toHTTPError(fmt.Errorf("%w: days must be a non-negative integer", domain.ErrValidation))
		}
		days = parsed
	}

	cleared, err := h.service.Prune(c.UserContext(), days)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":      fmt.Sprintf("Cleared %d old emails", cleared),
		"clearedCount": cleared,
	})
}

func (h *EmailHandler) ListTemplates(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"templates": h.service.TemplateNames(),
	})
}

func (h *EmailHandler) ConfigStatus(c *fiber.Ctx) error {
	settings, err := h.smtp.Reload()
	if err != nil {
		return fmt.Errorf("failed to load smtp settings: %w", err)
	}

	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(configStatusResponse{
		Host:                         settings.Host,
		Port:                         settings.Port,
		Username:                     settings.Username,
		PasswordConfigured:           settings.HasCredentials(),
		PasswordLooksLikeAppPassword: settings.LooksLikeAppPassword(),
		QueueStats:                   toQueueStatsResponse(stats),
		Instructions:                 appPasswordInstructions,
	})
}

// TestConfiguration queues a credentials email to the configured sender
// and runs a processing pass right away.
func (h *EmailHandler) TestConfiguration(c *fiber.Ctx) error {
	settings, err := h.smtp.Reload()
	if err != nil {
		return fmt.Errorf("failed to load smtp settings: %w", err)
	}
	if strings.TrimSpace(settings.Username) == "" {
		return toHTTPError(fmt.Errorf("%w: EMAIL_USER is not configured", domain.ErrValidation))
	}

	ctx := c.UserContext()
	id, err := h.service.Enqueue(ctx, mailtemplate.UserCredentials, settings.Username, map[string]any{
		"full_name":    "Test User",
		"username":     "testuser",
		"password":     "testpass123",
		"role_display": "Test Role",
		"login_url":    h.loginURL,
	})
	if err != nil {
		return toHTTPError(err)
	}

	stats, err := h.service.ProcessQueue(ctx)
	if err != nil {
		return toHTTPError(err)
	}

	status := "unknown"
	var jobErr *string
	job, err := h.service.GetStatus(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	if job != nil {
		status = job.Status.String()
		jobErr = job.ErrorMessage
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Test email queued and processed",
		"emailId": id,
		"status":  status,
		"error":   jobErr,
		"stats":   toProcessStatsResponse(stats),
	})
}

func toEmailResponse(j *domain.EmailJob) emailResponse {
	return emailResponse{
		ID:           j.ID,
		Recipient:    j.Recipient,
		Subject:      j.Subject,
		TemplateName: j.TemplateName,
		Status:       j.Status.String(),
		CreatedAt:    j.CreatedAt,
		SentAt:       j.SentAt,
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		ErrorMessage: j.ErrorMessage,
	}
}

func toProcessStatsResponse(s domain.ProcessStats) processStatsResponse {
	return processStatsResponse{Sent: s.Sent, Failed: s.Failed, Retried: s.Retried}
}

func toQueueStatsResponse(s domain.QueueStats) queueStatsResponse {
	return queueStatsResponse{
		Total:   s.Total,
		Pending: s.Pending,
		Sent:    s.Sent,
		Failed:  s.Failed,
		Retry:   s.Retry,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrTemplateRender):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
