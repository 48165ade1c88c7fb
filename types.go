package backupcodes

import "time"

// SetState represents the derived lifecycle state of an owner's code set.
// It is never stored; it is computed from remaining count, threshold, and
// expiry on every read.
type SetState uint8

const (
	// StateAbsent is an exported constant or variable used by the backup code manager.
	StateAbsent SetState = iota
	// StateActive is an exported constant or variable used by the backup code manager.
	StateActive
	// StateDepleting is an exported constant or variable used by the backup code manager.
	StateDepleting
	// StateExhausted is an exported constant or variable used by the backup code manager.
	StateExhausted
	// StateExpired is an exported constant or variable used by the backup code manager.
	StateExpired
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s SetState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateActive:
		return "active"
	case StateDepleting:
		return "depleting"
	case StateExhausted:
		return "exhausted"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// AttemptContext carries the caller-supplied signals scored on each
// verification attempt. A zero At means time.Now at scoring.
type AttemptContext struct {
	At     time.Time
	Origin string
	Device string
}

// GenerateResult is returned by [Manager.Generate]. Codes holds the display
// form (XXXX-XXXX); this result is the only moment the plaintext codes are
// visible to the caller.
type GenerateResult struct {
	Codes       []string
	GeneratedAt time.Time
	ExpiresAt   time.Time
}

// VerifyResult is returned by [Manager.Verify]. A non-matching code is not
// an error: Valid is false and RemainingCodes reports the unchanged count.
type VerifyResult struct {
	Valid             bool
	RemainingCodes    int
	ShouldGenerateNew bool
	RiskScore         int
}

// StatusResult is the read-only lifecycle summary returned by
// [Manager.Status].
type StatusResult struct {
	HasCodes          bool
	RemainingCodes    int
	ShouldGenerateNew bool
	ExpiresAt         time.Time
	State             SetState
	Grade             string
}
