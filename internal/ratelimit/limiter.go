package ratelimit

import (
	"context"
	"errors"
)

// ChannelEmail is the limiter key shared by every outbound SMTP send.
const ChannelEmail = "email"

// ErrUnavailable marks a limiter whose backend could not be reached. It says
// nothing about whether the caller is over its quota.
var ErrUnavailable = errors.New("rate limiter backend unavailable")

// RateLimiter throttles outbound sends per channel.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
