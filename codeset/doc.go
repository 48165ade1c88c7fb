// Package codeset defines the persistence contract for backup code sets and
// their usage history, plus the bundled Redis implementation.
//
// # Design
//
// A code set is stored whole under one key: a versioned, JSON-encoded record
// holding per-code bcrypt hashes and optional recoverable ciphertexts.
// ConsumeMatching uses a WATCH/MULTI optimistic transaction with automatic
// retry on contention, so concurrent submissions of the same code observe
// exactly one consumption. Usage history is a bounded Redis list per owner.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for code set
// records. It does NOT hash, verify, or score codes — the caller supplies a
// match predicate and this package guarantees the consumption is atomic.
//
// # What this package must NOT do
//
//   - Import backupcodes or any sibling package.
//   - Log or expose plaintext codes (it never sees them).
//   - Decide lifecycle policy (thresholds, expiry grading, regeneration).
package codeset
