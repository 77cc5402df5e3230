// Package authgate provides a stateless authentication and session-lifecycle
// engine: signed, time-bounded session credentials carried by the client, a
// sliding-window rotation scheme for authenticated traffic, and single-use
// email-verification and password-reset tokens with per-user re-issuance
// cooldowns.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserProvider] and [Mailer] collaborator interfaces, and sentinel
// errors. Session encoding lives in the session sub-package, password hashing
// in password, HTTP guarding in middleware, and identity-store adapters under
// provider/.
//
// # What this package must NOT do
//
//   - Hold server-side session state. A credential is valid iff its signature
//     verifies and it has not expired; there is no revocation list.
//   - Send mail or render HTML. Token delivery is the [Mailer] collaborator's
//     job; this engine hands it a recipient, a purpose, and a secret.
//   - Own user records. Creation and deletion belong to the host application;
//     the engine mutates only token, verification, and credential fields
//     through [UserProvider].
//
// # Performance contract
//
// Validate and Rotate are the hot path: pure CPU work over the signing secret
// with no provider round-trips. Login, issuance, and consumption are allowed
// the provider calls they document, in the documented order.
package authgate
