// Package session persists the client-side auth session between process
// runs.
//
// A [Store] holds at most one [Record] per storage key. Three backends are
// provided: [MemoryStore] for tests and ephemeral processes, [RedisStore]
// for processes that share a session, and [BoltStore] for a single local
// file. Records carry a schema version; [Decode] rejects versions it does
// not understand.
//
// # What this package must NOT do
//
//   - Refresh or validate tokens.
//   - Log token values.
package session
