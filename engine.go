package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nmscott14/authgate/internal/rate"
	"github.com/nmscott14/authgate/password"
	"github.com/nmscott14/authgate/session"
)

// Engine defines a public type used by authgate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config         Config
	codec          *session.Codec
	passwordHash   *password.Hasher
	userProvider   UserProvider
	mailer         Mailer
	requestLimiter *rate.Limiter
	audit          *auditDispatcher
	metrics        *Metrics
}

// Close releases background resources (the audit dispatcher). The engine
// must not be used after Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded under buffer
// pressure since the engine was built.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Cookie exposes the configured session-cookie attributes so the middleware
// writes exactly what the engine was built with.
func (e *Engine) Cookie() CookieConfig {
	return e.config.Cookie
}

func (e *Engine) now() time.Time {
	if e.config.Now != nil {
		return e.config.Now()
	}
	return time.Now()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	e.metrics.Observe(id, d)
}

// checkRequestLimiter applies the optional per-IP fixed-window budget for
// scope. A nil limiter (no Redis configured) admits everything.
func (e *Engine) checkRequestLimiter(ctx context.Context, scope string) error {
	if e.requestLimiter == nil {
		return nil
	}

	err := e.requestLimiter.Check(ctx, scope, clientIPFromContext(ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return ErrRequestRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// mapProviderError normalizes identity-store results: engine sentinels pass
// through untouched, context cancellation is preserved, and anything else is
// folded into [ErrStoreUnavailable] so storage internals never leak to
// callers.
func mapProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrNoMatchingToken),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func purposeCooldown(cfg Config, purpose TokenPurpose) time.Duration {
	if purpose == PurposeResetPassword {
		return cfg.PasswordReset.Cooldown
	}
	return cfg.Verification.Cooldown
}

func purposeTTL(cfg Config, purpose TokenPurpose) time.Duration {
	if purpose == PurposeResetPassword {
		return cfg.PasswordReset.TokenTTL
	}
	return cfg.Verification.TokenTTL
}

func purposeRateLimitError(purpose TokenPurpose) error {
	if purpose == PurposeResetPassword {
		return ErrResetRateLimited
	}
	return ErrVerificationRateLimited
}
