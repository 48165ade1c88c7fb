package backupcodes

import "time"

// SecurityReport is a read-only snapshot of the manager's security posture,
// returned by [Manager.SecurityReport].
type SecurityReport struct {
	TotalCodes            int
	CodeLength            int
	RegenerationThreshold int
	Expiry                time.Duration
	HashCost              int
	RecoverableStorage    bool
	AuditEnabled          bool
	MetricsEnabled        bool
	HistoryEnabled        bool
}

// SecurityReport describes the security report operation and its observable behavior.
//
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) SecurityReport() SecurityReport {
	if m == nil {
		return SecurityReport{}
	}
	return SecurityReport{
		TotalCodes:            m.config.Codes.TotalCodes,
		CodeLength:            m.config.Codes.CodeLength,
		RegenerationThreshold: m.config.Codes.RegenerationThreshold,
		Expiry:                m.config.Codes.Expiry,
		HashCost:              m.config.Crypto.HashCost,
		RecoverableStorage:    m.encoder != nil && m.encoder.Recoverable(),
		AuditEnabled:          m.audit != nil,
		MetricsEnabled:        m.metrics.Enabled(),
		HistoryEnabled:        m.history != nil && m.config.Store.HistoryLimit > 0,
	}
}
