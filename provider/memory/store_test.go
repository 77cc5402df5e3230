package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nmscott14/authgate"
)

func seedStore(t *testing.T) (*Store, authgate.UserRecord) {
	t.Helper()

	store := NewStore()
	user, err := store.CreateUser(context.Background(), authgate.UserRecord{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "digest",
		Role:         "user",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return store, user
}

func TestCreateAndLookups(t *testing.T) {
	ctx := context.Background()
	store, user := seedStore(t)

	if user.UserID == "" {
		t.Fatal("expected assigned user ID")
	}

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil || byEmail.UserID != user.UserID {
		t.Fatalf("GetUserByEmail: %v %+v", err, byEmail)
	}
	byName, err := store.GetUserByUsername(ctx, "alice")
	if err != nil || byName.UserID != user.UserID {
		t.Fatalf("GetUserByUsername: %v %+v", err, byName)
	}
	if _, err := store.GetUserByEmail(ctx, "ghost@example.com"); !errors.Is(err, authgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store, _ := seedStore(t)

	_, err := store.CreateUser(ctx, authgate.UserRecord{Username: "alice", Email: "other@example.com"})
	if !errors.Is(err, authgate.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	_, err = store.CreateUser(ctx, authgate.UserRecord{Username: "bob", Email: "alice@example.com"})
	if !errors.Is(err, authgate.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateFieldsMaintainsIndexes(t *testing.T) {
	ctx := context.Background()
	store, user := seedStore(t)

	email := "new@example.com"
	unverified := false
	updated, err := store.UpdateUserFields(ctx, user.UserID, authgate.UserUpdate{
		Email:           &email,
		IsVerified:      &unverified,
		ResetVerifySlot: true,
	})
	if err != nil {
		t.Fatalf("UpdateUserFields failed: %v", err)
	}
	if updated.Email != email {
		t.Fatalf("email not applied: %q", updated.Email)
	}

	if _, err := store.GetUserByEmail(ctx, "alice@example.com"); !errors.Is(err, authgate.ErrUserNotFound) {
		t.Fatalf("old index must be gone, got %v", err)
	}
	if got, err := store.GetUserByEmail(ctx, email); err != nil || got.UserID != user.UserID {
		t.Fatalf("new index lookup: %v %+v", err, got)
	}
}

func TestConsumeClearsSlotAndKeepsIssuedAt(t *testing.T) {
	ctx := context.Background()
	store, user := seedStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.StoreOneTimeToken(ctx, user.UserID, authgate.PurposeVerifyEmail, "s3cret", now.Add(time.Hour), now); err != nil {
		t.Fatalf("StoreOneTimeToken failed: %v", err)
	}

	got, err := store.ConsumeOneTimeToken(ctx, authgate.PurposeVerifyEmail, "s3cret", now.Add(time.Minute), func(u *authgate.UserRecord) {
		u.IsVerified = true
	})
	if err != nil {
		t.Fatalf("ConsumeOneTimeToken failed: %v", err)
	}
	if !got.IsVerified {
		t.Fatal("mutation must be applied")
	}
	if got.VerifyToken.Secret != "" || !got.VerifyToken.ExpiresAt.IsZero() {
		t.Fatal("slot must be cleared")
	}
	if !got.VerifyToken.LastIssuedAt.Equal(now) {
		t.Fatal("LastIssuedAt must survive")
	}

	if _, err := store.ConsumeOneTimeToken(ctx, authgate.PurposeVerifyEmail, "s3cret", now.Add(time.Minute), nil); !errors.Is(err, authgate.ErrNoMatchingToken) {
		t.Fatalf("second consume must miss, got %v", err)
	}
}

func TestConsumeMissesExpiredAndWrongSecret(t *testing.T) {
	ctx := context.Background()
	store, user := seedStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.StoreOneTimeToken(ctx, user.UserID, authgate.PurposeResetPassword, "s3cret", now.Add(time.Hour), now); err != nil {
		t.Fatalf("StoreOneTimeToken failed: %v", err)
	}

	if _, err := store.ConsumeOneTimeToken(ctx, authgate.PurposeResetPassword, "wrong", now, nil); !errors.Is(err, authgate.ErrNoMatchingToken) {
		t.Fatalf("wrong secret: %v", err)
	}
	if _, err := store.ConsumeOneTimeToken(ctx, authgate.PurposeVerifyEmail, "s3cret", now, nil); !errors.Is(err, authgate.ErrNoMatchingToken) {
		t.Fatalf("wrong purpose: %v", err)
	}
	if _, err := store.ConsumeOneTimeToken(ctx, authgate.PurposeResetPassword, "s3cret", now.Add(time.Hour), nil); !errors.Is(err, authgate.ErrNoMatchingToken) {
		t.Fatalf("at expiry: %v", err)
	}
}

func TestConcurrentConsumeExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	store, user := seedStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.StoreOneTimeToken(ctx, user.UserID, authgate.PurposeResetPassword, "s3cret", now.Add(time.Hour), now); err != nil {
		t.Fatalf("StoreOneTimeToken failed: %v", err)
	}

	const n = 32
	var wg sync.WaitGroup
	var wins, misses int64
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConsumeOneTimeToken(ctx, authgate.PurposeResetPassword, "s3cret", now, func(u *authgate.UserRecord) {
				u.PasswordHash = "rotated"
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, authgate.ErrNoMatchingToken):
				misses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d (misses %d)", wins, misses)
	}
	if misses != n-1 {
		t.Fatalf("expected %d misses, got %d", n-1, misses)
	}

	final, err := store.GetUserByID(ctx, user.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if final.PasswordHash != "rotated" {
		t.Fatal("winner's mutation must be persisted")
	}
}
