package authgate

import (
	"context"
	"errors"
)

const limiterScopeVerification = "verify-email"

// IssueVerificationToken mints and persists a fresh email-verification token
// for the user, subject to the re-issuance cooldown. The raw secret is
// returned for hosts that deliver it themselves; [Engine.RequestEmailVerification]
// is the full lookup+issue+deliver flow.
func (e *Engine) IssueVerificationToken(ctx context.Context, userID string) (string, error) {
	if e == nil || e.userProvider == nil {
		return "", ErrEngineNotReady
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return "", mapProviderError(err)
	}
	return e.issueVerification(ctx, user)
}

// RequestEmailVerification looks the account up by email, issues a token
// under the cooldown, and hands it to the mailer. Unlike the password-reset
// request this flow reports [ErrUserNotFound] for unknown addresses: the
// caller is already authenticated or mid-signup, so there is nothing to
// enumerate.
func (e *Engine) RequestEmailVerification(ctx context.Context, email string) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	if err := e.checkRequestLimiter(ctx, limiterScopeVerification); err != nil {
		if errors.Is(err, ErrRequestRateLimited) {
			e.emitRateLimit(ctx, limiterScopeVerification, nil)
		}
		return err
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		return mapProviderError(err)
	}

	secret, err := e.issueVerification(ctx, user)
	if err != nil {
		return err
	}
	return e.deliverToken(ctx, user, PurposeVerifyEmail, secret)
}

// ConfirmEmail consumes a verification secret and marks the owning account
// verified in the same committed step. Any non-matching, expired, or
// already-used secret yields [ErrTokenInvalid].
func (e *Engine) ConfirmEmail(ctx context.Context, secret string) (UserRecord, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	user, err := e.consumeOneTimeToken(ctx, PurposeVerifyEmail, secret, func(u *UserRecord) {
		u.IsVerified = true
	})
	if err != nil {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, "", err, nil)
		return UserRecord{}, err
	}

	e.metricInc(MetricVerificationConfirmed)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, user.UserID, nil, nil)
	return user, nil
}

func (e *Engine) issueVerification(ctx context.Context, user UserRecord) (string, error) {
	secret, err := e.issueOneTimeToken(ctx, user, PurposeVerifyEmail)
	if err != nil {
		if errors.Is(err, ErrVerificationRateLimited) {
			e.metricInc(MetricVerificationRateLimited)
		}
		e.emitAudit(ctx, auditEventVerificationRequest, false, user.UserID, err, nil)
		return "", err
	}

	e.metricInc(MetricVerificationIssued)
	e.emitAudit(ctx, auditEventVerificationRequest, true, user.UserID, nil, nil)
	return secret, nil
}
