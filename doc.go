// Package backupcodes manages the full lifecycle of MFA backup (recovery)
// codes: secure generation, hashed and encrypted storage, exactly-once
// consumption under concurrent requests, regeneration-threshold policy,
// risk scoring of verification attempts, emergency revocation, and audit
// event emission.
//
// The package is designed for concurrent server workloads: Manager methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// backupcodes is the public surface. It exposes [Manager], [Builder], [Config], and
// value types (VerifyResult, StatusResult, AuditEvent, etc.). Durable storage lives
// under codeset/ behind the [codeset.Store] contract; callers integrate their own
// persistence by implementing it, or use the bundled Redis and Postgres stores.
//
// # What this package must NOT do
//
//   - Decide when a user is offered a backup code, issue sessions, or implement the
//     primary TOTP protocol. Those belong to the calling authentication flow.
//   - Rate limit verification attempts. A failed match is a first-class result so the
//     caller can apply its own lockout or backoff policy.
//   - Log or emit a submitted code in plaintext, ever.
//
// # Consumption contract
//
// Verify is the concurrency-critical path. For any given code, at most one concurrent
// caller observes a valid consumption; all others observe a non-match. The guarantee
// is provided by the store's conditional write, not by application-level locking.
package backupcodes
