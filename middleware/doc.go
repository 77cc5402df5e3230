// Package middleware provides the HTTP route guard and handler helpers for
// authgate-backed applications.
//
// Guard runs in front of page routes: it classifies each request as public
// or protected, validates the session cookie, rotates valid sessions on a
// sliding window, and redirects everything else. API handlers sit behind
// RequireSession instead, which answers 401 JSON rather than redirecting.
//
// # Architecture boundaries
//
// The package imports the engine downward only. It never touches the
// identity store directly; every decision flows through Engine.Validate and
// Engine.Rotate.
//
// # What this package must NOT do
//
//   - No authorization policy beyond the flat role check in RequireRole.
//   - No session storage. The cookie it writes is the entire session state.
package middleware
