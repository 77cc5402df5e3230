package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired is returned by [Codec.Decode] when the credential's
	// signature verifies but its expiry has passed.
	ErrExpired = errors.New("session credential expired")
	// ErrInvalid is returned by [Codec.Decode] for any credential whose
	// signature does not verify against the current secret, or that cannot
	// be parsed at all.
	ErrInvalid = errors.New("session credential invalid")
)

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
	Now    func() time.Time
}

// Identity is the claim set carried by a session credential: who the caller
// is for the credential's lifetime. A fresh Identity copy is signed on every
// issuance; nothing is stored server-side.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     string
}

// Claims is the decoded form of a session credential. Fields are only ever
// populated from a signature-verified token; a decode either fully succeeds
// into this structure or fails.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the identity claims carried by c.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:   c.Subject,
		Username: c.Username,
		Email:    c.Email,
		Role:     c.Role,
	}
}

// Codec signs session credentials and verifies them back into [Claims].
// It is pure: no I/O, no shared mutable state, safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec describes the newcodec operation and its observable behavior.
//
// NewCodec may return an error when input validation, dependency calls, or security checks fail.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{config: cfg}, nil
}

// Issue mints a signed credential for identity with the given ttl. IssuedAt
// is stamped from the codec clock and a random jti keeps two issuances in
// the same instant from producing identical credentials.
func (c *Codec) Issue(identity Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("invalid credential ttl")
	}

	now := c.config.Now()
	claims := Claims{
		Username: identity.Username,
		Email:    identity.Email,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    c.config.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.config.Secret)
}

// Decode verifies credential and returns its claims. The signature check
// completes before any claim is surfaced; an unverified payload is never
// partially trusted. Expiry is reported as [ErrExpired], every other failure
// as [ErrInvalid].
func (c *Codec) Decode(credential string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.config.Now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}
