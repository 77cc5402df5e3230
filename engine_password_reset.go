package authgate

import (
	"context"
	"errors"
)

const limiterScopeReset = "reset-password"

// IssuePasswordResetToken mints and persists a fresh password-reset token
// for the user, subject to the re-issuance cooldown, and returns the raw
// secret. Most hosts want [Engine.RequestPasswordReset] instead.
func (e *Engine) IssuePasswordResetToken(ctx context.Context, userID string) (string, error) {
	if e == nil || e.userProvider == nil {
		return "", ErrEngineNotReady
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return "", mapProviderError(err)
	}
	return e.issueReset(ctx, user)
}

// RequestPasswordReset is the unauthenticated entry point, so it is
// enumeration safe: an unknown email and a cooldown rejection both return
// nil, indistinguishable from a successful send. Only infrastructure faults
// (storage, delivery) surface as errors.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	if err := e.checkRequestLimiter(ctx, limiterScopeReset); err != nil {
		if errors.Is(err, ErrRequestRateLimited) {
			e.emitRateLimit(ctx, limiterScopeReset, nil)
		}
		return err
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventResetRequest, false, "", ErrUserNotFound, nil)
			return nil
		}
		return mapProviderError(err)
	}

	secret, err := e.issueReset(ctx, user)
	if err != nil {
		if errors.Is(err, ErrResetRateLimited) {
			return nil
		}
		return err
	}
	return e.deliverToken(ctx, user, PurposeResetPassword, secret)
}

// ResetPassword validates newPassword against policy, hashes it, and then
// consumes the secret with the digest swap applied in the same committed
// step. Hashing happens before consumption: if hashing fails the token is
// still live and the user can retry with the same link.
func (e *Engine) ResetPassword(ctx context.Context, secret, newPassword string) (UserRecord, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	if err := e.checkPasswordPolicy(newPassword); err != nil {
		return UserRecord{}, err
	}

	digest, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return UserRecord{}, err
	}

	user, err := e.consumeOneTimeToken(ctx, PurposeResetPassword, secret, func(u *UserRecord) {
		u.PasswordHash = digest
	})
	if err != nil {
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, "", err, nil)
		return UserRecord{}, err
	}

	e.metricInc(MetricResetConfirmed)
	e.emitAudit(ctx, auditEventResetConfirm, true, user.UserID, nil, nil)
	return user, nil
}

func (e *Engine) issueReset(ctx context.Context, user UserRecord) (string, error) {
	secret, err := e.issueOneTimeToken(ctx, user, PurposeResetPassword)
	if err != nil {
		if errors.Is(err, ErrResetRateLimited) {
			e.metricInc(MetricResetRateLimited)
		}
		e.emitAudit(ctx, auditEventResetRequest, false, user.UserID, err, nil)
		return "", err
	}

	e.metricInc(MetricResetIssued)
	e.emitAudit(ctx, auditEventResetRequest, true, user.UserID, nil, nil)
	return secret, nil
}

func (e *Engine) checkPasswordPolicy(candidate string) error {
	if e.config.PasswordPolicy == nil {
		return nil
	}
	if err := e.config.PasswordPolicy(candidate); err != nil {
		return ErrPasswordPolicy
	}
	return nil
}
