package backupcodes

import (
	"errors"
	"time"
)

// Config defines a public type used by backupcodes APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Codes   CodesConfig
	Crypto  CryptoConfig
	Risk    RiskConfig
	Store   StoreConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
CODES CONFIG
====================================
*/

// CodesConfig defines a public type used by backupcodes APIs.
//
// CodesConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodesConfig struct {
	TotalCodes            int
	CodeLength            int
	RegenerationThreshold int
	Expiry                time.Duration
	Alphabet              string
}

/*
====================================
CRYPTO CONFIG
====================================
*/

// CryptoConfig defines a public type used by backupcodes APIs.
//
// CryptoConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CryptoConfig struct {
	// HashCost is the bcrypt cost applied to verification hashes.
	HashCost int
	// EncryptionKey enables the recoverable encrypted copy of each code.
	// Must be 16, 24, or 32 bytes (AES-128/192/256-GCM). When empty, no
	// recoverable copy is stored and RecoverCodes returns ErrNoRecoverableCodes.
	EncryptionKey []byte
}

/*
====================================
RISK CONFIG
====================================
*/

// RiskConfig defines a public type used by backupcodes APIs.
//
// RiskConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RiskConfig struct {
	DayStartHour       int
	DayEndHour         int
	OffHoursScore      int
	MissingOriginScore int
	MissingDeviceScore int
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by backupcodes APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	RedisPrefix   string
	HistoryLimit  int
	HistoryExpiry time.Duration
}

// AuditConfig defines a public type used by backupcodes APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by backupcodes APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Codes: CodesConfig{
			TotalCodes:            10,
			CodeLength:            8,
			RegenerationThreshold: 3,
			Expiry:                90 * 24 * time.Hour,
			Alphabet:              CodeAlphabet,
		},
		Crypto: CryptoConfig{
			HashCost: 12,
		},
		Risk: RiskConfig{
			DayStartHour:       6,
			DayEndHour:         22,
			OffHoursScore:      10,
			MissingOriginScore: 5,
			MissingDeviceScore: 5,
		},
		Store: StoreConfig{
			RedisPrefix:   "bc",
			HistoryLimit:  100,
			HistoryExpiry: 180 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Crypto.EncryptionKey = cloneBytes(cfg.Crypto.EncryptionKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Codes
	if c.Codes.TotalCodes <= 0 {
		return errors.New("Codes TotalCodes must be > 0")
	}
	if c.Codes.TotalCodes > 100 {
		return errors.New("Codes TotalCodes must be <= 100")
	}
	if c.Codes.CodeLength < 8 {
		return errors.New("Codes CodeLength must be >= 8")
	}
	if c.Codes.RegenerationThreshold < 0 {
		return errors.New("Codes RegenerationThreshold must be >= 0")
	}
	if c.Codes.RegenerationThreshold > c.Codes.TotalCodes {
		return errors.New("Codes RegenerationThreshold must be <= TotalCodes")
	}
	if c.Codes.Expiry < 0 {
		return errors.New("Codes Expiry must be >= 0")
	}
	if len(c.Codes.Alphabet) < 10 {
		return errors.New("Codes Alphabet must contain at least 10 symbols")
	}
	if hasDuplicateSymbols(c.Codes.Alphabet) {
		return errors.New("Codes Alphabet must not repeat symbols")
	}

	// Crypto
	if c.Crypto.HashCost < 4 || c.Crypto.HashCost > 31 {
		return errors.New("Crypto HashCost must be between 4 and 31")
	}
	switch len(c.Crypto.EncryptionKey) {
	case 0, 16, 24, 32:
		// valid (empty disables the recoverable copy)
	default:
		return ErrEncryptionKeySize
	}

	// Risk
	if c.Risk.DayStartHour < 0 || c.Risk.DayStartHour > 23 {
		return errors.New("Risk DayStartHour must be between 0 and 23")
	}
	if c.Risk.DayEndHour < 0 || c.Risk.DayEndHour > 24 {
		return errors.New("Risk DayEndHour must be between 0 and 24")
	}
	if c.Risk.DayEndHour <= c.Risk.DayStartHour {
		return errors.New("Risk DayEndHour must be > DayStartHour")
	}
	if c.Risk.OffHoursScore < 0 || c.Risk.MissingOriginScore < 0 || c.Risk.MissingDeviceScore < 0 {
		return errors.New("Risk scores must be >= 0")
	}

	// Store
	if c.Store.RedisPrefix == "" {
		return errors.New("Store RedisPrefix must not be empty")
	}
	if c.Store.HistoryLimit < 0 {
		return errors.New("Store HistoryLimit must be >= 0")
	}
	if c.Store.HistoryExpiry < 0 {
		return errors.New("Store HistoryExpiry must be >= 0")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}

func hasDuplicateSymbols(alphabet string) bool {
	seen := make(map[rune]bool, len(alphabet))
	for _, r := range alphabet {
		if seen[r] {
			return true
		}
		seen[r] = true
	}
	return false
}
