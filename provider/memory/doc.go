// Package memory implements an in-process authgate.UserProvider backed by
// maps under a single mutex.
//
// # Architecture boundaries
//
// The store is self-contained: it imports the root package for the provider
// contract and nothing else. All operations are linearized by one lock, so
// the one-winner guarantee of ConsumeOneTimeToken holds trivially.
//
// # What this package must NOT do
//
//   - No persistence. Process exit loses everything.
//   - No eviction or TTL sweeping. Expired token slots stay in place until
//     overwritten; expiry is enforced at consume time.
//
// Intended for tests, examples, and single-node deployments where the user
// set fits in memory.
package memory
