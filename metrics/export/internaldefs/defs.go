package internaldefs

import (
	backupcodes "github.com/Vexary/backupcodes"
)

// CounterDef defines a public type used by backupcodes APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   backupcodes.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by backupcodes APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   backupcodes.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the backup code manager.
var CounterDefs = []CounterDef{
	{ID: backupcodes.MetricCodesGenerated, Name: "backupcodes_codes_generated_total", Help: "Code set generation operations."},
	{ID: backupcodes.MetricCodeUsed, Name: "backupcodes_code_used_total", Help: "Successful backup-code consumptions."},
	{ID: backupcodes.MetricCodeVerificationFailed, Name: "backupcodes_code_verification_failed_total", Help: "Verification attempts that matched no code."},
	{ID: backupcodes.MetricCodesRevoked, Name: "backupcodes_codes_revoked_total", Help: "Code set revocation operations."},
	{ID: backupcodes.MetricCodesRecovered, Name: "backupcodes_codes_recovered_total", Help: "Administrative code recovery operations."},
	{ID: backupcodes.MetricStoreError, Name: "backupcodes_store_errors_total", Help: "Store backend failures."},
	{ID: backupcodes.MetricCryptoError, Name: "backupcodes_crypto_errors_total", Help: "Cryptographic operation failures."},
}

// HistogramDefs is an exported constant or variable used by the backup code manager.
var HistogramDefs = []HistogramDef{
	{ID: backupcodes.MetricVerifyLatency, Name: "backupcodes_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the backup code manager.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the backup code manager.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
