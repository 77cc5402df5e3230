package authgate

import "errors"

var (
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBanned is an exported constant or variable used by the authentication engine.
	ErrAccountBanned = errors.New("account banned")
	// ErrAccountUnverified is an exported constant or variable used by the authentication engine.
	ErrAccountUnverified = errors.New("account email not verified")
	// ErrSessionExpired is an exported constant or variable used by the authentication engine.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionInvalid is an exported constant or variable used by the authentication engine.
	ErrSessionInvalid = errors.New("invalid session credential")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrVerificationRateLimited is an exported constant or variable used by the authentication engine.
	ErrVerificationRateLimited = errors.New("verification token requested too recently")
	// ErrResetRateLimited is an exported constant or variable used by the authentication engine.
	ErrResetRateLimited = errors.New("password reset requested too recently")
	// ErrRequestRateLimited is an exported constant or variable used by the authentication engine.
	ErrRequestRateLimited = errors.New("too many requests")
	// ErrEmailTaken is an exported constant or variable used by the authentication engine.
	ErrEmailTaken = errors.New("email already in use")
	// ErrUsernameTaken is an exported constant or variable used by the authentication engine.
	ErrUsernameTaken = errors.New("username already in use")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrNotAuthorized is an exported constant or variable used by the authentication engine.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrDeliveryFailed is an exported constant or variable used by the authentication engine.
	ErrDeliveryFailed = errors.New("token delivery failed")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("identity store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrNoMatchingToken is returned by [UserProvider.ConsumeOneTimeToken] when
	// no user holds the presented secret for the purpose, or the stored value
	// has expired, or a concurrent consumer cleared it first. The engine folds
	// it into [ErrTokenInvalid] so wrong, expired, and replayed secrets are
	// indistinguishable to callers.
	ErrNoMatchingToken = errors.New("no matching one-time token")
)
