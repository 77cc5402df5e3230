package authgate

import (
	"context"
	"time"
)

// TokenPurpose identifies which one-time-token slot on a user record an
// operation targets. Exactly one active token exists per (user, purpose).
type TokenPurpose uint8

const (
	// PurposeVerifyEmail is an exported constant or variable used by the authentication engine.
	PurposeVerifyEmail TokenPurpose = iota
	// PurposeResetPassword is an exported constant or variable used by the authentication engine.
	PurposeResetPassword
)

// String describes the string operation and its observable behavior.
func (p TokenPurpose) String() string {
	switch p {
	case PurposeVerifyEmail:
		return "verify-email"
	case PurposeResetPassword:
		return "reset-password"
	default:
		return "unknown"
	}
}

// TokenSlot is the persisted state of one (user, purpose) one-time token.
// Secret and ExpiresAt are cleared on successful consumption; LastIssuedAt
// survives consumption so the re-issuance cooldown keeps working after the
// value itself is gone.
type TokenSlot struct {
	Secret       string
	ExpiresAt    time.Time
	LastIssuedAt time.Time
}

// Active reports whether the slot currently holds a consumable secret.
func (s TokenSlot) Active(now time.Time) bool {
	return s.Secret != "" && now.Before(s.ExpiresAt)
}

// UserRecord is the engine's view of a user held by the host identity store.
// The engine never owns the record lifecycle; it mutates only the token,
// verification, password-digest, and profile fields it documents.
type UserRecord struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Bio          string
	IsVerified   bool
	IsBanned     bool

	VerifyToken TokenSlot
	ResetToken  TokenSlot
}

// TokenSlotFor returns a pointer to the slot matching purpose, or nil for an
// unknown purpose.
func (u *UserRecord) TokenSlotFor(purpose TokenPurpose) *TokenSlot {
	switch purpose {
	case PurposeVerifyEmail:
		return &u.VerifyToken
	case PurposeResetPassword:
		return &u.ResetToken
	default:
		return nil
	}
}

// UserUpdate is a partial update applied by [UserProvider.UpdateUserFields].
// Nil pointers leave the field untouched. ResetVerifySlot clears the whole
// verify-email token slot including LastIssuedAt, which restarts the cooldown
// clock after an email change.
type UserUpdate struct {
	Username        *string
	Email           *string
	Bio             *string
	PasswordHash    *string
	IsVerified      *bool
	ResetVerifySlot bool
}

// UserProvider is the identity-store adapter the host application must
// implement to integrate authgate with its user database. Lookups return
// [ErrUserNotFound] for absent users and wrap storage faults in
// [ErrStoreUnavailable].
//
// StoreOneTimeToken overwrites the (user, purpose) slot in one atomic write:
// a re-issued token invalidates the prior value by replacement.
//
// ConsumeOneTimeToken is the single concurrency-sensitive operation. It must
// locate the one user whose stored secret for purpose equals secret with
// expiry strictly after now, apply mutate to the record, clear the slot's
// secret and expiry (keeping LastIssuedAt), and persist — conditioned on the
// stored secret still being the one that was validated. Of N concurrent calls
// with the same secret exactly one may succeed; the rest observe
// [ErrNoMatchingToken]. The mutate callback runs before the cleared record is
// committed so the authorized effect and the clear land together.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, user UserRecord) (UserRecord, error)
	UpdateUserFields(ctx context.Context, userID string, update UserUpdate) (UserRecord, error)
	StoreOneTimeToken(ctx context.Context, userID string, purpose TokenPurpose, secret string, expiresAt, issuedAt time.Time) error
	ConsumeOneTimeToken(ctx context.Context, purpose TokenPurpose, secret string, now time.Time, mutate func(*UserRecord)) (UserRecord, error)
}

// Mailer is the outbound-delivery collaborator. It receives the recipient,
// the token purpose, and the raw secret; building the link and the transport
// message is its job. The engine never retries delivery and never rolls back
// a persisted token on delivery failure.
type Mailer interface {
	Send(ctx context.Context, to string, purpose TokenPurpose, secret string) error
}

// NoOpMailer discards every message. Useful in tests and for hosts that
// deliver tokens through another channel.
type NoOpMailer struct{}

// Send describes the send operation and its observable behavior.
func (NoOpMailer) Send(context.Context, string, TokenPurpose, string) error { return nil }
