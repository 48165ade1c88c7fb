package codeset

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is an exported constant or variable used by the code set stores.
	ErrNotFound = errors.New("code set not found")
	// ErrUnavailable is an exported constant or variable used by the code set stores.
	ErrUnavailable = errors.New("code set backend unavailable")
	// ErrConflict is an exported constant or variable used by the code set stores.
	ErrConflict = errors.New("code set modified concurrently")
)

// CodeRecord is one stored backup code: its bcrypt verification hash and,
// when recoverable storage is enabled, an AES-GCM ciphertext of the
// plaintext. The plaintext itself is never persisted.
type CodeRecord struct {
	ID         string `json:"id"`
	Hash       []byte `json:"hash"`
	Ciphertext []byte `json:"ciphertext,omitempty"`
	Used       bool   `json:"used"`
	UsedAt     int64  `json:"used_at,omitempty"`
}

// CodeSet is the whole-set record stored per owner. Timestamps are unix
// seconds; ExpiresAt zero means the set never expires.
type CodeSet struct {
	OwnerID     string       `json:"owner_id"`
	Records     []CodeRecord `json:"records"`
	GeneratedAt int64        `json:"generated_at"`
	ExpiresAt   int64        `json:"expires_at,omitempty"`
}

// Remaining counts unused records.
func (s *CodeSet) Remaining() int {
	if s == nil {
		return 0
	}
	n := 0
	for i := range s.Records {
		if !s.Records[i].Used {
			n++
		}
	}
	return n
}

// ConsumeOutcome reports the result of a ConsumeMatching call. Matched is
// false when no unused record satisfied the predicate; Remaining always
// reflects the post-call unused count.
type ConsumeOutcome struct {
	Matched   bool
	CodeID    string
	Remaining int
}

// Store is the persistence contract for code sets. Implementations must
// make ConsumeMatching atomic: two concurrent calls matching the same
// record see exactly one Matched outcome.
type Store interface {
	SaveSet(ctx context.Context, ownerID string, set *CodeSet) error
	GetSet(ctx context.Context, ownerID string) (*CodeSet, error)
	ConsumeMatching(ctx context.Context, ownerID string, usedAt int64, match func(record CodeRecord) bool) (ConsumeOutcome, error)
	ClearSet(ctx context.Context, ownerID string) error
}

// UsageRecord is one persisted lifecycle event for an owner: a successful
// or failed verification attempt, or a revocation.
type UsageRecord struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	CodeID    string `json:"code_id,omitempty"`
	RiskScore int    `json:"risk_score,omitempty"`
	IP        string `json:"ip,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Actor     string `json:"actor,omitempty"`
	At        int64  `json:"at"`
}

// Usage record kinds.
const (
	UsageKindUsed    = "used"
	UsageKindFailed  = "failed"
	UsageKindRevoked = "revoked"
)

// HistoryStore persists usage records per owner, newest first.
type HistoryStore interface {
	Append(ctx context.Context, ownerID string, record UsageRecord) error
	List(ctx context.Context, ownerID string, limit int) ([]UsageRecord, error)
}
