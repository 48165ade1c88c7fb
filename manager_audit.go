package backupcodes

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventCodesGenerated         = "codes_generated"
	auditEventCodeUsed               = "code_used"
	auditEventCodeVerificationFailed = "code_verification_failed"
	auditEventCodesRevoked           = "codes_revoked"
	auditEventCodesRecovered         = "codes_recovered"
)

// AuditErrorCode defines a public type used by backupcodes APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrOwnerRequired      AuditErrorCode = "owner_required"
	auditErrCodesExist         AuditErrorCode = "codes_exist"
	auditErrSetNotFound        AuditErrorCode = "set_not_found"
	auditErrCrypto             AuditErrorCode = "crypto_failed"
	auditErrNoRecoverableCodes AuditErrorCode = "no_recoverable_codes"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	ownerID string,
	actor string,
	riskScore int,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}
	if actor == "" {
		actor = actorFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		OwnerID:   ownerID,
		Actor:     actor,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		RiskScore: riskScore,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrOwnerRequired):
		return auditErrOwnerRequired
	case errors.Is(err, ErrCodesExist):
		return auditErrCodesExist
	case errors.Is(err, ErrSetNotFound):
		return auditErrSetNotFound
	case errors.Is(err, ErrCryptoFailed),
		errors.Is(err, ErrEncryptionKeySize):
		return auditErrCrypto
	case errors.Is(err, ErrNoRecoverableCodes):
		return auditErrNoRecoverableCodes
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
