package internal

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// oneTimeSecretSize is 32 bytes of entropy, double the 128-bit floor the
// engine guarantees for one-time secrets.
const oneTimeSecretSize = 32

// NewOneTimeSecret returns a cryptographically random opaque secret for
// one-time-use flows, base64url encoded without padding. The value carries
// no relation to any user identifier; an enumerable derivation (hashing the
// user id, say) would let an attacker mint valid tokens.
//
// Failure means the process entropy source is broken — callers treat it as a
// fatal environment error, not a recoverable one.
func NewOneTimeSecret() (string, error) {
	var raw [oneTimeSecretSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// SecretsEqual compares two one-time secrets in constant time.
func SecretsEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
