package authgate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLogout              = "logout"
	auditEventSessionRotated      = "session_rotated"
	auditEventSessionRejected     = "session_rejected"
	auditEventSignup              = "signup"
	auditEventProfileUpdate       = "profile_update"
	auditEventVerificationRequest = "verification_request"
	auditEventVerificationConfirm = "verification_confirm"
	auditEventResetRequest        = "password_reset_request"
	auditEventResetConfirm        = "password_reset_confirm"
	auditEventTokenDelivery       = "token_delivery"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
)

// AuditErrorCode defines a public type used by authgate APIs.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrAccountBanned      AuditErrorCode = "account_banned"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrSessionInvalid     AuditErrorCode = "session_invalid"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, metadataBuilder func() map[string]string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountBanned):
		return auditErrAccountBanned
	case errors.Is(err, ErrAccountUnverified):
		return auditErrAccountUnverified
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrSessionInvalid):
		return auditErrSessionInvalid
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrNoMatchingToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrVerificationRateLimited),
		errors.Is(err, ErrResetRateLimited),
		errors.Is(err, ErrRequestRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrUsernameTaken):
		return auditErrDuplicate
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
