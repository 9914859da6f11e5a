package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

// LimitAction names a rate-limited operation and fixes its threshold and
// window. The window is anchored to the first failure: the TTL is set only
// when the counter transitions from absent to 1, so later failures never
// extend it. Counters reset fully on success.
type LimitAction struct {
	prefix    string
	Threshold int64
	Window    time.Duration
}

// Rate-limited actions. Login counts (ip, email) pairs; OTP counts per
// account id.
var (
	LimitLogin = LimitAction{prefix: "login-rate-limit", Threshold: 5, Window: 15 * time.Minute}
	LimitOTP   = LimitAction{prefix: "otp-rate-limit", Threshold: 3, Window: 5 * time.Minute}
)

func (a LimitAction) key(identity string) string {
	return a.prefix + ":" + identity
}

// RateLimiter counts failed attempts per identity and action in the secret
// store and rejects once the threshold is reached.
type RateLimiter struct {
	store domain.SecretStore
}

// NewRateLimiter creates a limiter backed by the given store.
func NewRateLimiter(store domain.SecretStore) *RateLimiter {
	return &RateLimiter{store: store}
}

// Allow returns domain.ErrRateLimited once the counter has reached the
// action's threshold. A missing counter always allows.
func (l *RateLimiter) Allow(ctx context.Context, action LimitAction, identity string) error {
	value, ok, err := l.store.Get(ctx, action.key(identity))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// A corrupt counter must not lock the identity out forever.
		return l.store.Delete(ctx, action.key(identity))
	}
	if count >= action.Threshold {
		return domain.ErrRateLimited
	}
	return nil
}

// RecordFailure increments the counter, starting the window on the
// absent-to-1 transition.
func (l *RateLimiter) RecordFailure(ctx context.Context, action LimitAction, identity string) error {
	count, err := l.store.Increment(ctx, action.key(identity))
	if err != nil {
		return err
	}
	if count == 1 {
		return l.store.Expire(ctx, action.key(identity), action.Window)
	}
	return nil
}

// Reset clears the counter after a success so legitimate users are not
// penalized for earlier mistakes.
func (l *RateLimiter) Reset(ctx context.Context, action LimitAction, identity string) error {
	return l.store.Delete(ctx, action.key(identity))
}
