package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmscott14/authgate"
	"github.com/nmscott14/authgate/internal"
)

// Store is an in-memory identity store satisfying authgate.UserProvider.
// The zero value is not usable; call NewStore.
type Store struct {
	mu         sync.Mutex
	users      map[string]authgate.UserRecord
	byEmail    map[string]string
	byUsername map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]authgate.UserRecord),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

// GetUserByEmail describes the getuserbyemail operation and its observable behavior.
func (s *Store) GetUserByEmail(_ context.Context, email string) (authgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return s.users[id], nil
}

// GetUserByUsername describes the getuserbyusername operation and its observable behavior.
func (s *Store) GetUserByUsername(_ context.Context, username string) (authgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUsername[username]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return s.users[id], nil
}

// GetUserByID describes the getuserbyid operation and its observable behavior.
func (s *Store) GetUserByID(_ context.Context, userID string) (authgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}
	return user, nil
}

// CreateUser inserts a new record, assigning a UUID when UserID is empty.
// Uniqueness of email and username is re-checked under the lock.
func (s *Store) CreateUser(_ context.Context, user authgate.UserRecord) (authgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return authgate.UserRecord{}, authgate.ErrEmailTaken
	}
	if _, taken := s.byUsername[user.Username]; taken {
		return authgate.UserRecord{}, authgate.ErrUsernameTaken
	}

	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	s.users[user.UserID] = user
	s.byEmail[user.Email] = user.UserID
	s.byUsername[user.Username] = user.UserID
	return user, nil
}

// UpdateUserFields applies a partial update and keeps the secondary indexes
// consistent with any email or username change.
func (s *Store) UpdateUserFields(_ context.Context, userID string, update authgate.UserUpdate) (authgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return authgate.UserRecord{}, authgate.ErrUserNotFound
	}

	if update.Username != nil && *update.Username != user.Username {
		if owner, taken := s.byUsername[*update.Username]; taken && owner != userID {
			return authgate.UserRecord{}, authgate.ErrUsernameTaken
		}
		delete(s.byUsername, user.Username)
		user.Username = *update.Username
		s.byUsername[user.Username] = userID
	}
	if update.Email != nil && *update.Email != user.Email {
		if owner, taken := s.byEmail[*update.Email]; taken && owner != userID {
			return authgate.UserRecord{}, authgate.ErrEmailTaken
		}
		delete(s.byEmail, user.Email)
		user.Email = *update.Email
		s.byEmail[user.Email] = userID
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.PasswordHash != nil {
		user.PasswordHash = *update.PasswordHash
	}
	if update.IsVerified != nil {
		user.IsVerified = *update.IsVerified
	}
	if update.ResetVerifySlot {
		user.VerifyToken = authgate.TokenSlot{}
	}

	s.users[userID] = user
	return user, nil
}

// StoreOneTimeToken overwrites the (user, purpose) slot in one step.
func (s *Store) StoreOneTimeToken(_ context.Context, userID string, purpose authgate.TokenPurpose, secret string, expiresAt, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return authgate.ErrUserNotFound
	}
	slot := user.TokenSlotFor(purpose)
	if slot == nil {
		return authgate.ErrTokenInvalid
	}
	*slot = authgate.TokenSlot{Secret: secret, ExpiresAt: expiresAt, LastIssuedAt: issuedAt}
	s.users[userID] = user
	return nil
}

// ConsumeOneTimeToken scans for the record holding secret in the purpose
// slot with expiry after now, applies mutate, clears the secret and expiry,
// and commits. The store lock serializes racing consumers, so exactly one
// call per secret can find an active slot.
func (s *Store) ConsumeOneTimeToken(_ context.Context, purpose authgate.TokenPurpose, secret string, now time.Time, mutate func(*authgate.UserRecord)) (authgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, user := range s.users {
		slot := user.TokenSlotFor(purpose)
		if slot == nil || !slot.Active(now) {
			continue
		}
		if !internal.SecretsEqual(slot.Secret, secret) {
			continue
		}

		oldEmail, oldUsername := user.Email, user.Username
		if mutate != nil {
			mutate(&user)
		}
		slot = user.TokenSlotFor(purpose)
		slot.Secret = ""
		slot.ExpiresAt = time.Time{}

		if user.Email != oldEmail {
			delete(s.byEmail, oldEmail)
			s.byEmail[user.Email] = id
		}
		if user.Username != oldUsername {
			delete(s.byUsername, oldUsername)
			s.byUsername[user.Username] = id
		}
		s.users[id] = user
		return user, nil
	}
	return authgate.UserRecord{}, authgate.ErrNoMatchingToken
}

var _ authgate.UserProvider = (*Store)(nil)
