package domain

import "time"

// AuditEvent enumerates recorded account events.
type AuditEvent string

const (
	AuditEventLogin    AuditEvent = "LOGIN"
	AuditEventLogout   AuditEvent = "LOGOUT"
	AuditEventRegister AuditEvent = "REGISTER"
)

// AuditOutcome marks whether the audited operation succeeded.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "SUCCESS"
	AuditOutcomeFailure AuditOutcome = "FAILURE"
)

// LoginLog is a persisted account audit record. Immutable once constructed.
type LoginLog struct {
	ID         int64
	Username   string
	Event      AuditEvent
	Outcome    AuditOutcome
	Message    string
	IPAddress  string
	OccurredAt time.Time
}
