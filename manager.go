package backupcodes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Vexary/backupcodes/codeset"
)

// Manager defines a public type used by backupcodes APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config  Config
	store   codeset.Store
	history codeset.HistoryStore
	encoder *Encoder
	scorer  RiskScorer
	audit   *auditDispatcher
	metrics *Metrics

	// test hook; nil means time.Now
	now func() time.Time
}

func (m *Manager) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

// Generate describes the generate operation and its observable behavior.
//
// A new set replaces any prior set whole; there is no partial persistence.
// When force is false and an active set still has unused codes, Generate
// fails with ErrCodesExist. The returned plaintext codes are the only copy
// the caller will ever see.
//
// Generate may return an error when input validation, dependency calls, or security checks fail.
// Generate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Generate(ctx context.Context, ownerID string, force bool) (*GenerateResult, error) {
	if m == nil || m.store == nil || m.encoder == nil {
		return nil, ErrManagerNotReady
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	now := m.clock()

	if !force {
		existing, err := m.store.GetSet(ctx, ownerID)
		switch {
		case err == nil:
			if existing.Remaining() > 0 && !setExpired(existing, now) {
				return nil, ErrCodesExist
			}
		case errors.Is(err, codeset.ErrNotFound):
			// first generation
		default:
			m.metricInc(MetricStoreError)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	plaintexts, err := GenerateCodes(m.config.Codes.TotalCodes, m.config.Codes.CodeLength, m.config.Codes.Alphabet, nil)
	if err != nil {
		m.metricInc(MetricCryptoError)
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailed, err)
	}

	records := make([]codeset.CodeRecord, 0, len(plaintexts))
	for _, plaintext := range plaintexts {
		canonical := CanonicalizeCode(plaintext)
		hash, err := m.encoder.Hash(canonical)
		if err != nil {
			m.metricInc(MetricCryptoError)
			m.emitAudit(ctx, auditEventCodesGenerated, false, ownerID, "", 0, err, nil)
			return nil, err
		}
		ciphertext, err := m.encoder.Encrypt(canonical)
		if err != nil {
			m.metricInc(MetricCryptoError)
			m.emitAudit(ctx, auditEventCodesGenerated, false, ownerID, "", 0, err, nil)
			return nil, err
		}
		records = append(records, codeset.CodeRecord{
			ID:         uuid.NewString(),
			Hash:       hash,
			Ciphertext: ciphertext,
		})
	}

	set := &codeset.CodeSet{
		OwnerID:     ownerID,
		Records:     records,
		GeneratedAt: now.Unix(),
	}
	var expiresAt time.Time
	if m.config.Codes.Expiry > 0 {
		expiresAt = now.Add(m.config.Codes.Expiry)
		set.ExpiresAt = expiresAt.Unix()
	}

	if err := m.store.SaveSet(ctx, ownerID, set); err != nil {
		m.metricInc(MetricStoreError)
		wrapped := fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		m.emitAudit(ctx, auditEventCodesGenerated, false, ownerID, "", 0, wrapped, nil)
		return nil, wrapped
	}

	m.metricInc(MetricCodesGenerated)
	m.emitAudit(ctx, auditEventCodesGenerated, true, ownerID, "", 0, nil, func() map[string]string {
		return map[string]string{
			"count":  strconv.Itoa(len(records)),
			"forced": strconv.FormatBool(force),
		}
	})

	display := make([]string, len(plaintexts))
	for i, plaintext := range plaintexts {
		display[i] = FormatCode(plaintext)
	}

	return &GenerateResult{
		Codes:       display,
		GeneratedAt: now,
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify describes the verify operation and its observable behavior.
//
// A submitted code that matches no stored code is not an error: the result
// carries Valid false and the unchanged remaining count, and the caller
// applies its own lockout policy. A matching code is consumed exactly once
// even under concurrent submissions; the losing racers observe Valid false.
// Expired and absent sets always verify as non-matches.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Verify(ctx context.Context, ownerID, code string, attempt AttemptContext) (*VerifyResult, error) {
	if m == nil || m.store == nil || m.encoder == nil {
		return nil, ErrManagerNotReady
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	start := m.clock()
	riskScore := 0
	if m.scorer != nil {
		riskScore = m.scorer.Score(attempt)
	}
	canonical := CanonicalizeCode(code)

	set, err := m.store.GetSet(ctx, ownerID)
	if err != nil {
		if errors.Is(err, codeset.ErrNotFound) {
			return m.verifyMiss(ctx, ownerID, riskScore, 0, start), nil
		}
		m.metricInc(MetricStoreError)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if setExpired(set, start) || canonical == "" {
		return m.verifyMiss(ctx, ownerID, riskScore, set.Remaining(), start), nil
	}

	outcome, err := m.store.ConsumeMatching(ctx, ownerID, start.Unix(), func(record codeset.CodeRecord) bool {
		return m.encoder.Verify(canonical, record.Hash)
	})
	if err != nil {
		if errors.Is(err, codeset.ErrNotFound) {
			// revoked or regenerated between read and consume; the new set wins
			return m.verifyMiss(ctx, ownerID, riskScore, 0, start), nil
		}
		m.metricInc(MetricStoreError)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !outcome.Matched {
		return m.verifyMiss(ctx, ownerID, riskScore, outcome.Remaining, start), nil
	}

	m.metricInc(MetricCodeUsed)
	m.observeVerify(start)
	m.emitAudit(ctx, auditEventCodeUsed, true, ownerID, "", riskScore, nil, func() map[string]string {
		return map[string]string{
			"remaining": strconv.Itoa(outcome.Remaining),
		}
	})
	m.appendHistory(ctx, ownerID, codeset.UsageRecord{
		ID:        uuid.NewString(),
		Kind:      codeset.UsageKindUsed,
		CodeID:    outcome.CodeID,
		RiskScore: riskScore,
		IP:        clientIPFromContext(ctx),
		At:        start.Unix(),
	})

	return &VerifyResult{
		Valid:             true,
		RemainingCodes:    outcome.Remaining,
		ShouldGenerateNew: outcome.Remaining <= m.config.Codes.RegenerationThreshold,
		RiskScore:         riskScore,
	}, nil
}

func (m *Manager) verifyMiss(ctx context.Context, ownerID string, riskScore, remaining int, start time.Time) *VerifyResult {
	m.metricInc(MetricCodeVerificationFailed)
	m.observeVerify(start)
	m.emitAudit(ctx, auditEventCodeVerificationFailed, false, ownerID, "", riskScore, nil, func() map[string]string {
		return map[string]string{
			"remaining": strconv.Itoa(remaining),
		}
	})
	m.appendHistory(ctx, ownerID, codeset.UsageRecord{
		ID:        uuid.NewString(),
		Kind:      codeset.UsageKindFailed,
		RiskScore: riskScore,
		IP:        clientIPFromContext(ctx),
		At:        start.Unix(),
	})

	return &VerifyResult{
		Valid:             false,
		RemainingCodes:    remaining,
		ShouldGenerateNew: remaining <= m.config.Codes.RegenerationThreshold,
		RiskScore:         riskScore,
	}
}

// Status describes the status operation and its observable behavior.
//
// Status is read-only: it never mutates the set and never emits audit
// events.
//
// Status may return an error when input validation, dependency calls, or security checks fail.
// Status does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Status(ctx context.Context, ownerID string) (*StatusResult, error) {
	if m == nil || m.store == nil {
		return nil, ErrManagerNotReady
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	set, err := m.store.GetSet(ctx, ownerID)
	if err != nil {
		if errors.Is(err, codeset.ErrNotFound) {
			return &StatusResult{
				State:             StateAbsent,
				Grade:             "none",
				ShouldGenerateNew: true,
			}, nil
		}
		m.metricInc(MetricStoreError)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := m.clock()
	remaining := set.Remaining()
	state := deriveState(set, remaining, m.config.Codes.RegenerationThreshold, now)

	result := &StatusResult{
		HasCodes:          remaining > 0,
		RemainingCodes:    remaining,
		State:             state,
		Grade:             stateGrade(state),
		ShouldGenerateNew: state != StateActive,
	}
	if set.ExpiresAt > 0 {
		result.ExpiresAt = time.Unix(set.ExpiresAt, 0)
	}
	return result, nil
}

// Revoke describes the revoke operation and its observable behavior.
//
// Revocation clears the owner's set unconditionally and is idempotent:
// revoking an absent set succeeds and still emits the audit trail.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
// Revoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Revoke(ctx context.Context, ownerID, reason, actor string) error {
	if m == nil || m.store == nil {
		return ErrManagerNotReady
	}
	if ownerID == "" {
		return ErrOwnerRequired
	}

	if err := m.store.ClearSet(ctx, ownerID); err != nil {
		m.metricInc(MetricStoreError)
		wrapped := fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		m.emitAudit(ctx, auditEventCodesRevoked, false, ownerID, actor, 0, wrapped, nil)
		return wrapped
	}

	m.metricInc(MetricCodesRevoked)
	m.emitAudit(ctx, auditEventCodesRevoked, true, ownerID, actor, 0, nil, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	m.appendHistory(ctx, ownerID, codeset.UsageRecord{
		ID:     uuid.NewString(),
		Kind:   codeset.UsageKindRevoked,
		IP:     clientIPFromContext(ctx),
		Reason: reason,
		Actor:  actor,
		At:     m.clock().Unix(),
	})
	return nil
}

// RecoverCodes describes the recover codes operation and its observable behavior.
//
// This is the controlled administrative display path: it decrypts the
// recoverable copies of the owner's unused codes. It requires an encryption
// key at build time and is always audited with the acting identity.
//
// RecoverCodes may return an error when input validation, dependency calls, or security checks fail.
// RecoverCodes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) RecoverCodes(ctx context.Context, ownerID, actor string) ([]string, error) {
	if m == nil || m.store == nil || m.encoder == nil {
		return nil, ErrManagerNotReady
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if !m.encoder.Recoverable() {
		return nil, ErrNoRecoverableCodes
	}

	set, err := m.store.GetSet(ctx, ownerID)
	if err != nil {
		if errors.Is(err, codeset.ErrNotFound) {
			return nil, ErrSetNotFound
		}
		m.metricInc(MetricStoreError)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	codes := make([]string, 0, len(set.Records))
	for _, record := range set.Records {
		if record.Used || len(record.Ciphertext) == 0 {
			continue
		}
		plaintext, err := m.encoder.Decrypt(record.Ciphertext)
		if err != nil {
			m.metricInc(MetricCryptoError)
			m.emitAudit(ctx, auditEventCodesRecovered, false, ownerID, actor, 0, err, nil)
			return nil, err
		}
		codes = append(codes, FormatCode(plaintext))
	}
	if len(codes) == 0 {
		return nil, ErrNoRecoverableCodes
	}

	m.metricInc(MetricCodesRecovered)
	m.emitAudit(ctx, auditEventCodesRecovered, true, ownerID, actor, 0, nil, func() map[string]string {
		return map[string]string{
			"count": strconv.Itoa(len(codes)),
		}
	})
	return codes, nil
}

// UsageHistory describes the usage history operation and its observable behavior.
//
// UsageHistory may return an error when input validation, dependency calls, or security checks fail.
// UsageHistory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) UsageHistory(ctx context.Context, ownerID string, limit int) ([]codeset.UsageRecord, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if m.history == nil {
		return nil, nil
	}

	records, err := m.history.List(ctx, ownerID, limit)
	if err != nil {
		m.metricInc(MetricStoreError)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

func (m *Manager) observeVerify(start time.Time) {
	if m == nil || m.metrics == nil || !m.metrics.LatencyEnabled() {
		return
	}
	m.metrics.Observe(MetricVerifyLatency, time.Since(start))
}

func (m *Manager) appendHistory(ctx context.Context, ownerID string, record codeset.UsageRecord) {
	if m == nil || m.history == nil {
		return
	}
	// best effort; history loss never fails the caller's operation
	if err := m.history.Append(ctx, ownerID, record); err != nil {
		m.metricInc(MetricStoreError)
	}
}

func setExpired(set *codeset.CodeSet, now time.Time) bool {
	return set != nil && set.ExpiresAt > 0 && now.Unix() > set.ExpiresAt
}

func deriveState(set *codeset.CodeSet, remaining, threshold int, now time.Time) SetState {
	switch {
	case setExpired(set, now):
		return StateExpired
	case remaining == 0:
		return StateExhausted
	case remaining <= threshold:
		return StateDepleting
	default:
		return StateActive
	}
}

func stateGrade(state SetState) string {
	switch state {
	case StateActive:
		return "healthy"
	case StateDepleting:
		return "low"
	case StateExhausted:
		return "depleted"
	case StateExpired:
		return "expired"
	default:
		return "none"
	}
}
