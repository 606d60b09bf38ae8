package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
)

// ProviderError classifies SMTP relay failures.
type ProviderError struct {
	StatusCode int
	Message    string
	Transient  bool
	Auth       bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "smtp error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("code=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether an error is likely to succeed on a later attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsAuthFailure reports whether the relay rejected the configured credentials.
func IsAuthFailure(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Auth
	}
	return false
}

// FailureReason maps an error to a low-cardinality metric label.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsAuthFailure(err):
		return "auth_error"
	case IsTransient(err):
		return "transient_error"
	default:
		return "permanent_error"
	}
}

func classifySMTPError(err error) *ProviderError {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return &ProviderError{
			StatusCode: protoErr.Code,
			Message:    "relay rejected request",
			Transient:  protoErr.Code >= 400 && protoErr.Code < 500,
			Auth:       isAuthCode(protoErr.Code),
			Cause:      err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ProviderError{
			Message:   "relay connection failed",
			Transient: true,
			Cause:     err,
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unencrypted connection"), strings.Contains(msg, "username and password not accepted"):
		return &ProviderError{Message: "relay authentication failed", Auth: true, Cause: err}
	case strings.Contains(msg, " 535 "), strings.HasPrefix(msg, "535 "):
		return &ProviderError{StatusCode: 535, Message: "relay authentication failed", Auth: true, Cause: err}
	}

	return &ProviderError{
		Message:   "relay request failed",
		Transient: true,
		Cause:     err,
	}
}

func isAuthCode(code int) bool {
	switch code {
	case 530, 534, 535, 538:
		return true
	}
	return false
}
