package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nmscott14/authgate"
	"github.com/nmscott14/authgate/internal"
)

const defaultKeyPrefix = "ag"

// consume retries a handful of times when a concurrent writer aborts the
// WATCH transaction before giving up.
const consumeMaxRetries = 4

// ErrUnavailable wraps any Redis transport or protocol fault so callers can
// distinguish infrastructure trouble from a plain miss.
var ErrUnavailable = errors.New("redis store unavailable")

type storedSlot struct {
	Secret       string    `json:"secret,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	LastIssuedAt time.Time `json:"last_issued_at,omitempty"`
}

type storedUser struct {
	UserID       string     `json:"user_id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	Role         string     `json:"role"`
	Bio          string     `json:"bio,omitempty"`
	IsVerified   bool       `json:"is_verified"`
	IsBanned     bool       `json:"is_banned"`
	VerifyToken  storedSlot `json:"verify_token"`
	ResetToken   storedSlot `json:"reset_token"`
}

// Store is a Redis-backed identity store satisfying authgate.UserProvider.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the default "ag" key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewStore wraps client. The client's lifecycle belongs to the caller.
func NewStore(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":user:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":idx:email:" + email
}

func (s *Store) usernameKey(name string) string {
	return s.prefix + ":idx:username:" + name
}

func (s *Store) tokenKey(purpose authgate.TokenPurpose, secret string) string {
	return s.prefix + ":tok:" + purpose.String() + ":" + secret
}

func toRecord(u storedUser) authgate.UserRecord {
	return authgate.UserRecord{
		UserID:       u.UserID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Bio:          u.Bio,
		IsVerified:   u.IsVerified,
		IsBanned:     u.IsBanned,
		VerifyToken:  authgate.TokenSlot(u.VerifyToken),
		ResetToken:   authgate.TokenSlot(u.ResetToken),
	}
}

func fromRecord(r authgate.UserRecord) storedUser {
	return storedUser{
		UserID:       r.UserID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Bio:          r.Bio,
		IsVerified:   r.IsVerified,
		IsBanned:     r.IsBanned,
		VerifyToken:  storedSlot(r.VerifyToken),
		ResetToken:   storedSlot(r.ResetToken),
	}
}

func (s *Store) getUser(ctx context.Context, id string) (storedUser, error) {
	data, err := s.client.Get(ctx, s.userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return storedUser{}, authgate.ErrUserNotFound
	}
	if err != nil {
		return storedUser{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var u storedUser
	if err := json.Unmarshal(data, &u); err != nil {
		return storedUser{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return u, nil
}

func (s *Store) getByIndex(ctx context.Context, indexKey string) (authgate.UserRecord, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	if err != nil {
		return authgate.UserRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	u, err := s.getUser(ctx, id)
	if err != nil {
		return authgate.UserRecord{}, err
	}
	return toRecord(u), nil
}

// GetUserByEmail describes the getuserbyemail operation and its observable behavior.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (authgate.UserRecord, error) {
	return s.getByIndex(ctx, s.emailKey(email))
}

// GetUserByUsername describes the getuserbyusername operation and its observable behavior.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (authgate.UserRecord, error) {
	return s.getByIndex(ctx, s.usernameKey(username))
}

// GetUserByID describes the getuserbyid operation and its observable behavior.
func (s *Store) GetUserByID(ctx context.Context, userID string) (authgate.UserRecord, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return authgate.UserRecord{}, err
	}
	return toRecord(u), nil
}

// CreateUser claims both secondary indexes with SETNX before writing the
// record, so a concurrent duplicate loses at the index claim.
func (s *Store) CreateUser(ctx context.Context, user authgate.UserRecord) (authgate.UserRecord, error) {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}

	ok, err := s.client.SetNX(ctx, s.emailKey(user.Email), user.UserID, 0).Result()
	if err != nil {
		return authgate.UserRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return authgate.UserRecord{}, authgate.ErrEmailTaken
	}

	ok, err = s.client.SetNX(ctx, s.usernameKey(user.Username), user.UserID, 0).Result()
	if err != nil {
		return authgate.UserRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		s.client.Del(ctx, s.emailKey(user.Email))
		return authgate.UserRecord{}, authgate.ErrUsernameTaken
	}

	if err := s.writeUser(ctx, fromRecord(user)); err != nil {
		s.client.Del(ctx, s.emailKey(user.Email), s.usernameKey(user.Username))
		return authgate.UserRecord{}, err
	}
	return user, nil
}

func (s *Store) writeUser(ctx context.Context, u storedUser) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := s.client.Set(ctx, s.userKey(u.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// UpdateUserFields rewrites the record under WATCH so racing updates to the
// same user serialize instead of clobbering each other.
func (s *Store) UpdateUserFields(ctx context.Context, userID string, update authgate.UserUpdate) (authgate.UserRecord, error) {
	key := s.userKey(userID)

	for i := 0; i < consumeMaxRetries; i++ {
		var updated storedUser

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return authgate.ErrUserNotFound
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			var u storedUser
			if err := json.Unmarshal(data, &u); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			oldEmail, oldUsername := u.Email, u.Username
			if update.Username != nil {
				u.Username = *update.Username
			}
			if update.Email != nil {
				u.Email = *update.Email
			}
			if update.Bio != nil {
				u.Bio = *update.Bio
			}
			if update.PasswordHash != nil {
				u.PasswordHash = *update.PasswordHash
			}
			if update.IsVerified != nil {
				u.IsVerified = *update.IsVerified
			}
			if update.ResetVerifySlot {
				u.VerifyToken = storedSlot{}
			}

			encoded, err := json.Marshal(u)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				if u.Email != oldEmail {
					pipe.Del(ctx, s.emailKey(oldEmail))
					pipe.Set(ctx, s.emailKey(u.Email), userID, 0)
				}
				if u.Username != oldUsername {
					pipe.Del(ctx, s.usernameKey(oldUsername))
					pipe.Set(ctx, s.usernameKey(u.Username), userID, 0)
				}
				return nil
			})
			if err != nil {
				return err
			}
			updated = u
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return authgate.UserRecord{}, err
		}
		return toRecord(updated), nil
	}
	return authgate.UserRecord{}, fmt.Errorf("%w: transaction retries exhausted", ErrUnavailable)
}

// StoreOneTimeToken writes the new slot onto the record and repoints the
// token lookup key in one transaction. The prior secret's lookup entry is
// removed so replaced tokens cannot resolve.
func (s *Store) StoreOneTimeToken(ctx context.Context, userID string, purpose authgate.TokenPurpose, secret string, expiresAt, issuedAt time.Time) error {
	key := s.userKey(userID)

	for i := 0; i < consumeMaxRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return authgate.ErrUserNotFound
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			var u storedUser
			if err := json.Unmarshal(data, &u); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			slot := &u.VerifyToken
			if purpose == authgate.PurposeResetPassword {
				slot = &u.ResetToken
			}
			prior := slot.Secret
			*slot = storedSlot{Secret: secret, ExpiresAt: expiresAt, LastIssuedAt: issuedAt}

			encoded, err := json.Marshal(u)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			// The caller's clock may not be the wall clock, so the lookup
			// key's TTL comes from the issue-to-expiry span, not time.Until.
			lookupTTL := expiresAt.Sub(issuedAt)

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				if prior != "" {
					pipe.Del(ctx, s.tokenKey(purpose, prior))
				}
				pipe.Set(ctx, s.tokenKey(purpose, secret), userID, lookupTTL)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: transaction retries exhausted", ErrUnavailable)
}

// ConsumeOneTimeToken resolves the secret through the token lookup key, then
// compares, mutates, and clears the slot under WATCH on the record. A
// concurrent winner invalidates the transaction and the retry observes the
// already-cleared slot as a miss.
func (s *Store) ConsumeOneTimeToken(ctx context.Context, purpose authgate.TokenPurpose, secret string, now time.Time, mutate func(*authgate.UserRecord)) (authgate.UserRecord, error) {
	if secret == "" {
		return authgate.UserRecord{}, authgate.ErrNoMatchingToken
	}

	userID, err := s.client.Get(ctx, s.tokenKey(purpose, secret)).Result()
	if errors.Is(err, redis.Nil) {
		return authgate.UserRecord{}, authgate.ErrNoMatchingToken
	}
	if err != nil {
		return authgate.UserRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	key := s.userKey(userID)

	for i := 0; i < consumeMaxRetries; i++ {
		var consumed storedUser

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return authgate.ErrNoMatchingToken
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			var u storedUser
			if err := json.Unmarshal(data, &u); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			record := toRecord(u)
			slot := record.TokenSlotFor(purpose)
			if !slot.Active(now) || !internal.SecretsEqual(slot.Secret, secret) {
				return authgate.ErrNoMatchingToken
			}

			oldEmail, oldUsername := record.Email, record.Username
			if mutate != nil {
				mutate(&record)
			}
			slot = record.TokenSlotFor(purpose)
			slot.Secret = ""
			slot.ExpiresAt = time.Time{}

			u = fromRecord(record)
			encoded, err := json.Marshal(u)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				pipe.Del(ctx, s.tokenKey(purpose, secret))
				if record.Email != oldEmail {
					pipe.Del(ctx, s.emailKey(oldEmail))
					pipe.Set(ctx, s.emailKey(record.Email), userID, 0)
				}
				if record.Username != oldUsername {
					pipe.Del(ctx, s.usernameKey(oldUsername))
					pipe.Set(ctx, s.usernameKey(record.Username), userID, 0)
				}
				return nil
			})
			if err != nil {
				return err
			}
			consumed = u
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return authgate.UserRecord{}, err
		}
		return toRecord(consumed), nil
	}
	return authgate.UserRecord{}, fmt.Errorf("%w: transaction retries exhausted", ErrUnavailable)
}

var _ authgate.UserProvider = (*Store)(nil)
