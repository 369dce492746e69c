package errors

import "errors"

var (
	ErrAssignmentNotFound      = errors.New("role assignment not found")
	ErrAssignmentRevoked       = errors.New("role assignment is revoked")
	ErrInvalidDelegationData   = errors.New("invalid delegation data")
	ErrDelegationDepthExceeded = errors.New("delegation depth exceeded")

	ErrRevocationTargetUnknown = errors.New("unknown revocation target type")
)
