// model/revocation.go
package model

import "time"

const (
	RevocationTargetUser       = "user"
	RevocationTargetSession    = "session"
	RevocationTargetAssignment = "role-assignment"
)

// RevocationMark is an invalidated-since watermark. Any decision evaluated at
// or after EffectiveSince must treat the target's derived permissions as
// revoked, no matter what allow policies match.
type RevocationMark struct {
	TargetType     string    `json:"target_type"`
	TargetID       string    `json:"target_id"`
	EffectiveSince time.Time `json:"effective_since"`
	Reason         string    `json:"reason"`
	Version        int64     `json:"version"`
}

// Applies reports whether the mark is in force at the evaluation time.
func (m *RevocationMark) Applies(at time.Time) bool {
	return !m.EffectiveSince.After(at)
}
