package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestSignupCreatesUnverifiedUserAndMailsToken(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	up := newMockUserProvider()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, clock, up, mailer)

	created, err := engine.Signup(ctx, SignupInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if created.IsVerified {
		t.Fatal("new accounts start unverified")
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("email must be normalized, got %q", created.Email)
	}
	if created.Role != "user" {
		t.Fatalf("expected default role, got %q", created.Role)
	}

	mail, ok := mailer.lastSent()
	if !ok || mail.Purpose != PurposeVerifyEmail {
		t.Fatalf("expected verification delivery, got %+v", mail)
	}

	// The mailed token verifies the fresh account.
	if _, err := engine.ConfirmEmail(ctx, mail.Secret); err != nil {
		t.Fatalf("ConfirmEmail failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery"); err != nil {
		t.Fatalf("login after verification failed: %v", err)
	}
}

func TestSignupDuplicateChecks(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	up := newMockUserProvider()
	engine := newTestEngine(t, clock, up, &recordingMailer{})

	if _, err := engine.Signup(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "correct-horse-battery"}); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}

	if _, err := engine.Signup(ctx, SignupInput{Username: "alice", Email: "other@example.com", Password: "pw-123456789012"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := engine.Signup(ctx, SignupInput{Username: "bob", Email: "alice@example.com", Password: "pw-123456789012"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if got := engine.MetricsSnapshot().Counters[MetricSignupDuplicate]; got != 2 {
		t.Fatalf("expected 2 duplicate signups counted, got %d", got)
	}
}

func TestSignupDeliveryFailureStillCreatesAccount(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	up := newMockUserProvider()
	mailer := &recordingMailer{err: errors.New("relay refused")}
	engine := newTestEngine(t, clock, up, mailer)

	created, err := engine.Signup(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "correct-horse-battery"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if created.UserID == "" {
		t.Fatal("account must exist despite delivery failure")
	}
	if _, err := up.GetUserByEmail(ctx, "alice@example.com"); err != nil {
		t.Fatalf("account lookup failed: %v", err)
	}
}

func TestUpdateProfileEmailChangeUnverifies(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	up := newMockUserProvider()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, clock, up, mailer)

	seedUser(t, engine, up, UserRecord{
		UserID:     "u1",
		Username:   "alice",
		Email:      "alice@example.com",
		IsVerified: true,
	}, "correct-horse-battery")

	newEmail := "alice@new.example.com"
	updated, result, err := engine.UpdateProfile(ctx, "u1", ProfileUpdate{Email: &newEmail})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.IsVerified {
		t.Fatal("email change must un-verify the account")
	}
	if updated.Email != newEmail {
		t.Fatalf("email not applied: %q", updated.Email)
	}
	if result == nil || result.Claims.Email != newEmail {
		t.Fatalf("rotated credential must carry the new email, got %+v", result)
	}

	mail, ok := mailer.lastSent()
	if !ok || mail.To != newEmail || mail.Purpose != PurposeVerifyEmail {
		t.Fatalf("expected verification mail to new address, got %+v", mail)
	}

	// The slot was cleared before re-issue, so the fresh token works
	// immediately despite any prior cooldown.
	if _, err := engine.ConfirmEmail(ctx, mail.Secret); err != nil {
		t.Fatalf("ConfirmEmail failed: %v", err)
	}
}

func TestUpdateProfileBioOnlyKeepsVerification(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	up := newMockUserProvider()
	engine := newTestEngine(t, clock, up, &recordingMailer{})

	seedUser(t, engine, up, UserRecord{
		UserID:     "u1",
		Username:   "alice",
		Email:      "alice@example.com",
		IsVerified: true,
	}, "correct-horse-battery")

	bio := "gopher"
	updated, _, err := engine.UpdateProfile(ctx, "u1", ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if !updated.IsVerified {
		t.Fatal("bio update must not touch verification")
	}
	if updated.Bio != "gopher" {
		t.Fatalf("bio not applied: %q", updated.Bio)
	}
}

func TestUpdateProfileDuplicateTargets(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	up := newMockUserProvider()
	engine := newTestEngine(t, clock, up, &recordingMailer{})

	seedUser(t, engine, up, UserRecord{UserID: "u1", Username: "alice", Email: "alice@example.com", IsVerified: true}, "correct-horse-battery")
	seedUser(t, engine, up, UserRecord{UserID: "u2", Username: "bob", Email: "bob@example.com", IsVerified: true}, "bobs-password-123")

	taken := "bob"
	if _, _, err := engine.UpdateProfile(ctx, "u1", ProfileUpdate{Username: &taken}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	takenMail := "bob@example.com"
	if _, _, err := engine.UpdateProfile(ctx, "u1", ProfileUpdate{Email: &takenMail}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCurrentUserResolvesClaims(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	up := newMockUserProvider()
	engine := newTestEngine(t, clock, up, &recordingMailer{})

	seedUser(t, engine, up, UserRecord{
		UserID:     "u1",
		Username:   "alice",
		Email:      "alice@example.com",
		IsVerified: true,
		Bio:        "gopher",
	}, "correct-horse-battery")

	result, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	user, err := engine.CurrentUser(ctx, result.Claims)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user.UserID != "u1" || user.Bio != "gopher" {
		t.Fatalf("unexpected record: %+v", user)
	}

	if _, err := engine.CurrentUser(ctx, nil); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("nil claims must fail, got %v", err)
	}
}
