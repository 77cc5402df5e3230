// Package internal contains helper utilities that are intentionally private
// to authgate: secure one-time-secret generation and constant-time secret
// comparison.
//
// # Sub-packages
//
//   - rate — Redis-backed fixed-window request limiter primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
