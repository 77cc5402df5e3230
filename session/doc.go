// Package session implements the signed session-credential codec: claims in,
// compact HS256 JWT out, and back again.
//
// # Trust model
//
// A credential is self-contained. It is trusted iff its signature verifies
// against the process-wide secret and its expiry has not passed; there is no
// server-side lookup and no revocation list. [Codec.Decode] never surfaces a
// claim from an unverified payload.
//
// # Architecture boundaries
//
// This package owns encoding and verification only. Login policy, rotation
// timing, and cookie handling belong to the Engine and middleware.
//
// # What this package must NOT do
//
//   - Import authgate or any of its sub-packages (no upward imports).
//   - Perform I/O. Decode and Issue are pure functions of their input, the
//     secret, and the injected clock.
//   - Accept any signing algorithm other than the pinned HS256.
package session
