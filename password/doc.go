// Package password implements password hashing and verification with
// Argon2id defaults.
//
// # Output format
//
// Digests are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// so verification reads its parameters from the stored value and keeps
// working after the live configuration changes.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy is a
// predicate injected into the Engine by the host application.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive
//     digests.
//   - Import any other authgate package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
