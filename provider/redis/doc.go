// Package redis implements an authgate.UserProvider on top of a Redis
// instance, for hosts that keep their user records in Redis rather than a
// relational store.
//
// # Data layout
//
// Records are stored as JSON under a configurable key prefix:
//
//	<prefix>:user:<id>            full user record
//	<prefix>:idx:email:<email>    secondary index, value is the user id
//	<prefix>:idx:username:<name>  secondary index, value is the user id
//	<prefix>:tok:<purpose>:<sec>  token lookup, value is the user id
//
// The token lookup key carries the token TTL so stale entries age out on
// their own; the authoritative expiry still lives on the record's slot.
//
// # Concurrency
//
// ConsumeOneTimeToken runs under WATCH on the user key with the final write
// in a MULTI/EXEC pipeline. A concurrent writer aborts the transaction and
// the consume retries, so of N racing consumers of one secret exactly one
// commits the cleared slot.
//
// # What this package must NOT do
//
//   - No schema migration or cross-version record decoding.
//   - No cluster-aware key hashing beyond what the client provides.
package redis
