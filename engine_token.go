package authgate

import (
	"context"
	"errors"

	"github.com/nmscott14/authgate/internal"
)

// issueOneTimeToken enforces the per-purpose cooldown against the user's
// token slot, generates a fresh secret, and persists it. Storing overwrites
// whatever secret the slot held, so re-issuance invalidates the prior token
// as a side effect of the single write.
//
// The cooldown gate runs strictly before generation: a rejected request
// leaves both the slot and the cooldown clock untouched.
func (e *Engine) issueOneTimeToken(ctx context.Context, user UserRecord, purpose TokenPurpose) (string, error) {
	slot := user.TokenSlotFor(purpose)
	if slot == nil {
		return "", ErrTokenInvalid
	}

	now := e.now()
	cooldown := purposeCooldown(e.config, purpose)
	if !slot.LastIssuedAt.IsZero() && now.Sub(slot.LastIssuedAt) < cooldown {
		return "", purposeRateLimitError(purpose)
	}

	secret, err := internal.NewOneTimeSecret()
	if err != nil {
		return "", err
	}

	expiresAt := now.Add(purposeTTL(e.config, purpose))
	if err := e.userProvider.StoreOneTimeToken(ctx, user.UserID, purpose, secret, expiresAt, now); err != nil {
		return "", mapProviderError(err)
	}
	return secret, nil
}

// deliverToken hands the secret to the mailer. A persisted token is never
// rolled back on delivery failure: the cooldown already ticked, and the
// token stays valid should delivery be retried out of band.
func (e *Engine) deliverToken(ctx context.Context, user UserRecord, purpose TokenPurpose, secret string) error {
	if e.mailer == nil {
		return nil
	}

	err := e.mailer.Send(ctx, user.Email, purpose, secret)
	if err != nil {
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventTokenDelivery, false, user.UserID, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{
				"purpose": purpose.String(),
				"cause":   err.Error(),
			}
		})
		return ErrDeliveryFailed
	}

	e.emitAudit(ctx, auditEventTokenDelivery, true, user.UserID, nil, func() map[string]string {
		return map[string]string{
			"purpose": purpose.String(),
		}
	})
	return nil
}

// consumeOneTimeToken validates and retires a secret in one atomic step,
// applying mutate to the owning record before the cleared slot is committed.
// Every failure mode a caller could probe with collapses into
// [ErrTokenInvalid]: wrong value, expired, and already-used are
// indistinguishable from outside.
func (e *Engine) consumeOneTimeToken(ctx context.Context, purpose TokenPurpose, secret string, mutate func(*UserRecord)) (UserRecord, error) {
	if secret == "" {
		return UserRecord{}, ErrTokenInvalid
	}

	user, err := e.userProvider.ConsumeOneTimeToken(ctx, purpose, secret, e.now(), mutate)
	if err != nil {
		if errors.Is(err, ErrNoMatchingToken) {
			return UserRecord{}, ErrTokenInvalid
		}
		return UserRecord{}, mapProviderError(err)
	}
	return user, nil
}
