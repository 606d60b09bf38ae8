package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	// ErrTemplateNotFound is returned when a template name is not registered.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateRender is returned when a template references a missing property.
	ErrTemplateRender = errors.New("template render failed")

	// ErrMissingCredentials is returned when no SMTP password is configured.
	ErrMissingCredentials = errors.New("EMAIL_PASS not configured")
)
