package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/cache"
)

const keyPrefix = "rate_limit:"

// LimitType selects what composes the counter key. It changes the key, not
// the algorithm.
type LimitType int

const (
	// Global counts every caller against one shared counter per operation.
	Global LimitType = iota
	// ByIP counts per caller IP.
	ByIP
	// ByUser counts per authenticated identity.
	ByUser
)

// Rule parameterizes one rate-limited operation.
type Rule struct {
	Window   time.Duration
	Capacity int64
	Type     LimitType
}

// Error reports a rejected call and when the window resets.
type Error struct {
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// Limiter admits or rejects calls using a fixed-window counter held in the
// shared cache. Fixed window trades up to 2x capacity across a boundary for
// bounded memory: one counter per key per window.
type Limiter struct {
	store    cache.Store
	logger   *zap.Logger
	failOpen bool
	now      func() time.Time
}

// NewLimiter constructs a limiter. failOpen admits calls when the cache is
// unreachable; the default policy is to reject so abuse cannot ride out a
// cache degradation.
func NewLimiter(store cache.Store, logger *zap.Logger, failOpen bool) *Limiter {
	return &Limiter{store: store, logger: logger, failOpen: failOpen, now: time.Now}
}

// Check counts the current call and rejects it once the window capacity is
// exceeded. The increment is atomic at the cache; no local locking.
func (l *Limiter) Check(ctx context.Context, operation, caller string, rule Rule) error {
	windowSeconds := int64(rule.Window / time.Second)
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	now := l.now()
	windowID := now.Unix() / windowSeconds

	key := fmt.Sprintf("%s%s:%d", keyPrefix, l.callerKey(operation, caller, rule.Type), windowID)
	count, err := l.store.Increment(ctx, key, time.Duration(windowSeconds)*time.Second)
	if err != nil {
		if l.failOpen {
			l.logger.Warn("rate counter unavailable, admitting", zap.String("key", key), zap.Error(err))
			return nil
		}
		l.logger.Warn("rate counter unavailable, rejecting", zap.String("key", key), zap.Error(err))
		return &Error{RetryAfter: l.retryAfter(now, windowSeconds)}
	}

	if count > rule.Capacity {
		return &Error{RetryAfter: l.retryAfter(now, windowSeconds)}
	}
	return nil
}

func (l *Limiter) callerKey(operation, caller string, limitType LimitType) string {
	switch limitType {
	case ByIP, ByUser:
		return operation + ":" + caller
	default:
		return operation
	}
}

// retryAfter is the time remaining until the next aligned window boundary.
func (l *Limiter) retryAfter(now time.Time, windowSeconds int64) time.Duration {
	elapsed := now.Unix() % windowSeconds
	return time.Duration(windowSeconds-elapsed) * time.Second
}
