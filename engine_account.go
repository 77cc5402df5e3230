package authgate

import (
	"context"
	"errors"
	"strings"

	"github.com/nmscott14/authgate/session"
)

const limiterScopeSignup = "signup"

// SignupInput carries the fields a new account is created from. Role is
// optional; an empty value falls back to Config.Login.DefaultRole.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     string
	Bio      string
}

// ProfileUpdate is the caller-facing partial update for
// [Engine.UpdateProfile]. Nil pointers leave fields untouched. Password
// carries the plaintext candidate; the engine hashes it.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Bio      *string
	Password *string
}

// Signup creates a new unverified account and kicks off email verification.
// Username and email uniqueness are checked up front, but the provider's
// CreateUser remains the authority: a concurrent duplicate surfaces as
// [ErrEmailTaken] or [ErrUsernameTaken] from the create itself.
//
// Verification delivery is best effort. The account exists once CreateUser
// returns; a failed send reports [ErrDeliveryFailed] alongside the created
// record so the host can offer a resend.
func (e *Engine) Signup(ctx context.Context, input SignupInput) (UserRecord, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	if err := e.checkRequestLimiter(ctx, limiterScopeSignup); err != nil {
		if errors.Is(err, ErrRequestRateLimited) {
			e.emitRateLimit(ctx, limiterScopeSignup, nil)
		}
		return UserRecord{}, err
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Username == "" || input.Email == "" {
		return UserRecord{}, ErrInvalidCredentials
	}

	if _, err := e.userProvider.GetUserByUsername(ctx, input.Username); err == nil {
		e.metricInc(MetricSignupDuplicate)
		e.emitAudit(ctx, auditEventSignup, false, "", ErrUsernameTaken, nil)
		return UserRecord{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return UserRecord{}, mapProviderError(err)
	}

	if _, err := e.userProvider.GetUserByEmail(ctx, input.Email); err == nil {
		e.metricInc(MetricSignupDuplicate)
		e.emitAudit(ctx, auditEventSignup, false, "", ErrEmailTaken, nil)
		return UserRecord{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return UserRecord{}, mapProviderError(err)
	}

	if err := e.checkPasswordPolicy(input.Password); err != nil {
		return UserRecord{}, err
	}

	digest, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		return UserRecord{}, err
	}

	role := input.Role
	if role == "" {
		role = e.config.Login.DefaultRole
	}

	created, err := e.userProvider.CreateUser(ctx, UserRecord{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: digest,
		Role:         role,
		Bio:          input.Bio,
		IsVerified:   false,
	})
	if err != nil {
		mapped := mapProviderError(err)
		e.emitAudit(ctx, auditEventSignup, false, "", mapped, nil)
		return UserRecord{}, mapped
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignup, true, created.UserID, nil, nil)

	secret, err := e.issueVerification(ctx, created)
	if err != nil {
		return created, nil
	}
	if err := e.deliverToken(ctx, created, PurposeVerifyEmail, secret); err != nil {
		return created, err
	}
	return created, nil
}

// UpdateProfile applies a partial update to the authenticated user and, when
// any claim-bearing field changed, mints a replacement credential so the
// client's session reflects the new identity.
//
// An email change un-verifies the account: IsVerified drops to false, the
// verify-token slot is cleared cooldown included, and a fresh verification
// token goes out to the new address.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (UserRecord, *LoginResult, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, nil, ErrEngineNotReady
	}

	current, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return UserRecord{}, nil, mapProviderError(err)
	}

	fields := UserUpdate{Bio: update.Bio}
	emailChanged := false

	if update.Username != nil {
		name := strings.TrimSpace(*update.Username)
		if name != current.Username {
			if _, err := e.userProvider.GetUserByUsername(ctx, name); err == nil {
				return UserRecord{}, nil, ErrUsernameTaken
			} else if !errors.Is(err, ErrUserNotFound) {
				return UserRecord{}, nil, mapProviderError(err)
			}
			fields.Username = &name
		}
	}

	if update.Email != nil {
		addr := strings.TrimSpace(strings.ToLower(*update.Email))
		if addr != current.Email {
			if _, err := e.userProvider.GetUserByEmail(ctx, addr); err == nil {
				return UserRecord{}, nil, ErrEmailTaken
			} else if !errors.Is(err, ErrUserNotFound) {
				return UserRecord{}, nil, mapProviderError(err)
			}
			unverified := false
			fields.Email = &addr
			fields.IsVerified = &unverified
			fields.ResetVerifySlot = true
			emailChanged = true
		}
	}

	if update.Password != nil {
		if err := e.checkPasswordPolicy(*update.Password); err != nil {
			return UserRecord{}, nil, err
		}
		digest, err := e.passwordHash.Hash(*update.Password)
		if err != nil {
			return UserRecord{}, nil, err
		}
		fields.PasswordHash = &digest
	}

	updated, err := e.userProvider.UpdateUserFields(ctx, userID, fields)
	if err != nil {
		mapped := mapProviderError(err)
		e.emitAudit(ctx, auditEventProfileUpdate, false, userID, mapped, nil)
		return UserRecord{}, nil, mapped
	}

	e.metricInc(MetricProfileUpdate)
	e.emitAudit(ctx, auditEventProfileUpdate, true, userID, nil, func() map[string]string {
		return map[string]string{
			"email_changed": boolLabel(emailChanged),
		}
	})

	if emailChanged {
		if secret, err := e.issueVerification(ctx, updated); err == nil {
			e.deliverToken(ctx, updated, PurposeVerifyEmail, secret)
		}
	}

	result, err := e.issueSession(updated)
	if err != nil {
		return updated, nil, err
	}
	return updated, result, nil
}

// CurrentUser resolves validated session claims back to the live user
// record. The record, not the claims, is authoritative for anything the
// host renders: claims can lag a profile update by up to one rotation.
func (e *Engine) CurrentUser(ctx context.Context, claims *session.Claims) (UserRecord, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	if claims == nil || claims.Subject == "" {
		return UserRecord{}, ErrSessionInvalid
	}

	user, err := e.userProvider.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return UserRecord{}, mapProviderError(err)
	}
	return user, nil
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
