package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/nmscott14/authgate/session"
)

const limiterScopeLogin = "login"

// LoginResult is returned by [Engine.Login]: the signed credential, its
// decoded claims, and the TTL the cookie should carry.
type LoginResult struct {
	Credential string
	Claims     *session.Claims
	TTL        time.Duration
}

// Login authenticates email+password and mints a session credential.
//
// Checks run in a fixed order — existence, password, ban, verification — and
// each failure maps to its own sentinel. Exposing distinct errors to the
// caller is a product decision inherited by this engine, not an oversight;
// hosts that want a uniform message collapse them at the HTTP layer.
func (e *Engine) Login(ctx context.Context, email, passwordSecret string) (*LoginResult, error) {
	if e == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.checkRequestLimiter(ctx, limiterScopeLogin); err != nil {
		e.metricInc(MetricLoginFailure)
		if errors.Is(err, ErrRequestRateLimited) {
			e.emitRateLimit(ctx, limiterScopeLogin, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
		}
		return nil, err
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		mapped := mapProviderError(err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", mapped, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return nil, mapped
	}

	ok, err := e.passwordHash.Verify(passwordSecret, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if user.IsBanned {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrAccountBanned, nil)
		return nil, ErrAccountBanned
	}

	if e.config.Login.RequireVerified && !user.IsVerified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrAccountUnverified, nil)
		return nil, ErrAccountUnverified
	}

	result, err := e.issueSession(user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, nil, nil)
	return result, nil
}

// Validate decodes and verifies a session credential. [ErrSessionExpired]
// and [ErrSessionInvalid] are surfaced distinctly so the route guard can
// choose between redirect and hard rejection. Both are terminal for the
// request: an unauthenticated caller, never a server fault.
func (e *Engine) Validate(ctx context.Context, credential string) (*session.Claims, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	claims, err := e.codec.Decode(credential)
	e.metricObserve(MetricValidateLatency, time.Since(start))

	if err != nil {
		mapped := ErrSessionInvalid
		if errors.Is(err, session.ErrExpired) {
			mapped = ErrSessionExpired
		}
		e.metricInc(MetricSessionRejected)
		e.emitAudit(ctx, auditEventSessionRejected, false, "", mapped, nil)
		return nil, mapped
	}

	return claims, nil
}

// Rotate re-issues a fresh credential carrying the same identity claims with
// a new issue and expiry time. Rotation is idempotent-safe: two rotations
// from the same claims yield two valid, distinct credentials, and the old
// one stays valid until its original expiry. Stateless sessions trade
// revocability for scale; there is no server-side list to update.
func (e *Engine) Rotate(ctx context.Context, claims *session.Claims) (*LoginResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if claims == nil || claims.Subject == "" {
		return nil, ErrSessionInvalid
	}

	credential, err := e.codec.Issue(claims.Identity(), e.config.Session.TTL)
	if err != nil {
		return nil, err
	}

	fresh, err := e.codec.Decode(credential)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSessionRotated)
	e.emitAudit(ctx, auditEventSessionRotated, true, claims.Subject, nil, nil)
	return &LoginResult{
		Credential: credential,
		Claims:     fresh,
		TTL:        e.config.Session.TTL,
	}, nil
}

// Logout is intentionally a no-op on the server: the session lives only in
// the client-held credential, so logging out means the client discards it.
// The method exists so hosts have one place to hang audit emission.
func (e *Engine) Logout(ctx context.Context, claims *session.Claims) {
	if e == nil || claims == nil {
		return
	}
	e.emitAudit(ctx, auditEventLogout, true, claims.Subject, nil, nil)
}

func (e *Engine) issueSession(user UserRecord) (*LoginResult, error) {
	credential, err := e.codec.Issue(session.Identity{
		UserID:   user.UserID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}, e.config.Session.TTL)
	if err != nil {
		return nil, err
	}

	claims, err := e.codec.Decode(credential)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Credential: credential,
		Claims:     claims,
		TTL:        e.config.Session.TTL,
	}, nil
}
