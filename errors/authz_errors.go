// errors/authz_errors.go
package errors

import "errors"

var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrInvalidRequest    = errors.New("invalid authorization request")
	ErrPolicyNotFound    = errors.New("policy not found")
	ErrPolicyConflict    = errors.New("policy conflict")
	ErrInvalidPolicyData = errors.New("invalid policy data")
	ErrNoPreviousVersion = errors.New("no previous policy version to roll back to")
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrUnauthorized      = errors.New("unauthorized")

	// ErrVersionGap means the propagation stream skipped a version and the
	// local snapshot can no longer be trusted until resynchronized.
	ErrVersionGap = errors.New("revocation stream version gap detected")

	// ErrStaleSnapshot means the snapshot is older than the propagation SLA
	// allows; the engine fails closed instead of serving from it.
	ErrStaleSnapshot = errors.New("snapshot staleness exceeds propagation SLA")
)
