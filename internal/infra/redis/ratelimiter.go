package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/crm-mailer/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultSendsPerSecond = 10
	sendWindow            = time.Second
	minWindowWait         = 5 * time.Millisecond
	sendSlotKeyPrefix     = "crm_mailer:smtp_slots"
)

// takeSlot counts one send in the current window and reports whether it
// stayed within the quota. The key lives for two windows so a late INCR
// never resurrects an expired counter.
var takeSlot = goredis.NewScript(`
local used = redis.call("INCR", KEYS[1])
if used == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if used > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter caps SMTP sends per window across every mailer process
// sharing the same Redis. Backend failures are reported as
// ratelimit.ErrUnavailable so callers can tell an outage from a throttle.
type RedisRateLimiter struct {
	client *goredis.Client
	quota  int64
	window time.Duration
	clock  func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRedisRateLimiter(client *goredis.Client, sendsPerSecond int) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, sendsPerSecond, time.Now, sleepWithContext)
}

func newRedisRateLimiter(
	client *goredis.Client,
	sendsPerSecond int,
	clock func() time.Time,
	sleep func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if sendsPerSecond <= 0 {
		sendsPerSecond = defaultSendsPerSecond
	}
	if clock == nil {
		clock = time.Now
	}
	if sleep == nil {
		sleep = sleepWithContext
	}

	return &RedisRateLimiter{
		client: client,
		quota:  int64(sendsPerSecond),
		window: sendWindow,
		clock:  clock,
		sleep:  sleep,
	}, nil
}

// Allow takes a send slot in the current window if one is left.
func (r *RedisRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	name := strings.ToLower(strings.TrimSpace(channel))
	if name == "" {
		return false, fmt.Errorf("channel is required")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := r.slotKey(name, r.clock())
	taken, err := takeSlot.Run(ctx, r.client, []string{key}, r.quota, (2 * r.window).Milliseconds()).Int()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("%w: %v", ratelimit.ErrUnavailable, err)
	}
	return taken == 1, nil
}

// Wait blocks until a send slot is taken. A throttled caller sleeps until
// the next window opens; ctx errors and backend errors end the wait.
func (r *RedisRateLimiter) Wait(ctx context.Context, channel string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		taken, err := r.Allow(ctx, channel)
		if err != nil {
			return err
		}
		if taken {
			return nil
		}
		if err := r.sleep(ctx, r.untilNextWindow(r.clock())); err != nil {
			return err
		}
	}
}

func (r *RedisRateLimiter) slotKey(channel string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%d", sendSlotKeyPrefix, channel, r.windowIndex(at))
}

func (r *RedisRateLimiter) windowIndex(at time.Time) int64 {
	return at.UnixMilli() / r.window.Milliseconds()
}

func (r *RedisRateLimiter) untilNextWindow(at time.Time) time.Duration {
	next := time.UnixMilli((r.windowIndex(at) + 1) * r.window.Milliseconds())
	return max(next.Sub(at), minWindowWait)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
