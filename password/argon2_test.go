package password

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := NewHasher(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestNewHasherRejectsWeakParameters(t *testing.T) {
	cases := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8 * 1024, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8 * 1024, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for i, cfg := range cases {
		if _, err := NewHasher(cfg); err == nil {
			t.Fatalf("case %d: expected rejection", i)
		}
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := testHasher(t)

	encoded, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected digest format: %q", encoded)
	}

	ok, err := h.Verify("correct-horse-battery", encoded)
	if err != nil || !ok {
		t.Fatalf("Verify: ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-password", encoded)
	if err != nil {
		t.Fatalf("Verify errored: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashSaltsAreFresh(t *testing.T) {
	h := testHasher(t)

	a, err := h.Hash("same-password-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash("same-password-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of one password must differ")
	}
}

func TestVerifyUsesEncodedParameters(t *testing.T) {
	// A digest produced with different cost parameters must still verify:
	// the parameters ride inside the PHC string.
	producer, err := NewHasher(Config{Memory: 16 * 1024, Time: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	encoded, err := producer.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	verifier := testHasher(t)
	ok, err := verifier.Verify("correct-horse-battery", encoded)
	if err != nil || !ok {
		t.Fatalf("cross-parameter verify: ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsMalformedDigests(t *testing.T) {
	h := testHasher(t)

	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=8192,t=1,p=1$notbase64!$x",
		"$bcrypt$whatever",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA",
	} {
		if _, err := h.Verify("password", encoded); err == nil {
			t.Fatalf("digest %q: expected parse error", encoded)
		}
	}
}
