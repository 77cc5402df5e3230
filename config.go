package authgate

import (
	"errors"
	"net/http"
	"time"
)

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session       SessionConfig
	Verification  VerificationConfig
	PasswordReset PasswordResetConfig
	Login         LoginConfig
	Password      PasswordConfig
	Cookie        CookieConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	Metrics       MetricsConfig

	// Now supplies the engine's clock. Defaults to time.Now; tests inject a
	// fake to exercise expiry and cooldown boundaries deterministically.
	Now func() time.Time

	// PasswordPolicy is the externally supplied complexity predicate. A nil
	// policy accepts every password; a non-nil error is surfaced as
	// [ErrPasswordPolicy].
	PasswordPolicy func(password string) error
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authgate APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// Secret is the process-wide HMAC signing secret, loaded once at startup
	// and never mutated. Rotating it is a deploy-time operation that
	// invalidates every outstanding credential at once.
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// VerificationConfig defines a public type used by authgate APIs.
//
// VerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerificationConfig struct {
	TokenTTL time.Duration
	Cooldown time.Duration
}

// PasswordResetConfig defines a public type used by authgate APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	TokenTTL time.Duration
	Cooldown time.Duration
}

// LoginConfig defines a public type used by authgate APIs.
//
// LoginConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginConfig struct {
	// RequireVerified rejects logins from accounts that have not completed
	// email verification.
	RequireVerified bool
	// DefaultRole is assigned to accounts created through Signup.
	DefaultRole string
}

// PasswordConfig carries the argon2id parameters handed to the password
// collaborator package.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// CookieConfig describes the session cookie the middleware reads and writes.
type CookieConfig struct {
	Name     string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// RateLimitConfig tunes the optional Redis-backed per-IP fixed-window
// limiter guarding the request endpoints. It is independent of the per-user
// re-issuance cooldown, which is always enforced from the user record.
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

// AuditConfig defines a public type used by authgate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authgate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration matching the engine's documented
// defaults: 1-hour sessions, 24-hour verification tokens, 4-hour reset
// tokens, and a 3-minute re-issuance cooldown for both purposes.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:    time.Hour,
			Issuer: "authgate",
			Leeway: 0,
		},
		Verification: VerificationConfig{
			TokenTTL: 24 * time.Hour,
			Cooldown: 3 * time.Minute,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: 4 * time.Hour,
			Cooldown: 3 * time.Minute,
		},
		Login: LoginConfig{
			RequireVerified: true,
			DefaultRole:     "user",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Cookie: CookieConfig{
			Name:     "session",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		},
		RateLimit: RateLimitConfig{
			Enabled:     false,
			MaxRequests: 10,
			Window:      time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
func (c *Config) Validate() error {
	if len(c.Session.Secret) < 32 {
		return errors.New("session secret must be at least 32 bytes")
	}
	if c.Session.TTL <= 0 {
		return errors.New("invalid session TTL")
	}
	if c.Session.Leeway < 0 || c.Session.Leeway > 2*time.Minute {
		return errors.New("invalid session leeway")
	}
	if c.Verification.TokenTTL <= 0 || c.PasswordReset.TokenTTL <= 0 {
		return errors.New("invalid one-time token TTL")
	}
	if c.Verification.Cooldown < 0 || c.PasswordReset.Cooldown < 0 {
		return errors.New("invalid re-issuance cooldown")
	}
	if c.Verification.Cooldown >= c.Verification.TokenTTL {
		return errors.New("verification cooldown must be shorter than its token TTL")
	}
	if c.PasswordReset.Cooldown >= c.PasswordReset.TokenTTL {
		return errors.New("password reset cooldown must be shorter than its token TTL")
	}
	if c.Cookie.Name == "" {
		return errors.New("cookie name required")
	}
	if c.RateLimit.Enabled && (c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("invalid rate limit configuration")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = append([]byte(nil), cfg.Session.Secret...)
	return out
}
