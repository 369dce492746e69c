package model

import "time"

// Decision reason codes surfaced to callers.
const (
	ReasonPolicyMatch       = "policy_match"
	ReasonNoMatchingPolicy  = "no_matching_policy"
	ReasonExplicitDeny      = "explicit_deny"
	ReasonConsentNotGranted = "consent not granted"
	ReasonConsentWithdrawn  = "consent withdrawn"
	ReasonRevoked           = "revoked"
	ReasonBreakGlass        = "break-glass grant active"
	ReasonTenantInactive    = "tenant_inactive"
	ReasonDegraded          = "degraded_fail_closed"
)

// Decision is the outcome of evaluating one request against one snapshot.
// Decisions are ephemeral: they are never persisted by the engine and never
// cached across snapshot version boundaries. ValidUntil bounds how long a
// caller may act on the decision before re-evaluating.
type Decision struct {
	Subject         Subject   `json:"subject"`
	Resource        string    `json:"resource"`
	Action          string    `json:"action"`
	Effect          string    `json:"decision"` // "allow" or "deny"
	Reason          string    `json:"reason,omitempty"`
	MatchedPolicyID string    `json:"matched_policy_id,omitempty"`
	SnapshotVersion int64     `json:"snapshot_version"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
	ValidUntil      time.Time `json:"valid_until"`
	Degraded        bool      `json:"degraded,omitempty"`
}

// Allowed reports whether the decision grants access.
func (d *Decision) Allowed() bool {
	return d.Effect == "allow"
}

// BatchDecision preserves request order.
type BatchDecision struct {
	Decisions []Decision `json:"decisions"`
}
