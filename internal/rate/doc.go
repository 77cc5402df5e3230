// Package rate provides the Redis-backed fixed-window primitive behind the
// optional per-IP throttle on token-request endpoints.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// prefixed "agr:<scope>:<ip>".
//
// # What this package must NOT do
//
//   - Enforce the per-user re-issuance cooldown (that lives on the user
//     record and is the Engine's job).
//   - Be imported outside the authgate module.
package rate
