// model/breakglass.go
package model

import "time"

const (
	BreakGlassStatusRequested       = "REQUESTED"
	BreakGlassStatusPartialApproval = "PARTIAL_APPROVAL"
	BreakGlassStatusApproved        = "APPROVED"
	BreakGlassStatusActive          = "ACTIVE"
	BreakGlassStatusExpired         = "EXPIRED"
	BreakGlassStatusDenied          = "DENIED"
	BreakGlassStatusRevoked         = "REVOKED"
)

// BreakGlassRequest is an emergency access request that activates only after
// enough distinct approver roles have signed off, and expires on a hard
// deadline regardless of approval state.
type BreakGlassRequest struct {
	ID                    string              `json:"id"`
	TenantID              string              `json:"tenant_id"`
	RequestedBy           string              `json:"requested_by"`
	TargetRole            string              `json:"target_role"`
	Scope                 string              `json:"scope"`
	EmergencyType         string              `json:"emergency_type"`
	Severity              string              `json:"severity"`
	Justification         string              `json:"justification"`
	RequiredApprovalCount int                 `json:"required_approval_count"`
	Approvals             []BreakGlassApproval `json:"approvals"`
	Status                string              `json:"status"`
	ActivationExpiry      time.Time           `json:"activation_expiry"`
	GrantedAssignmentID   string              `json:"granted_assignment_id,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

type BreakGlassApproval struct {
	ApproverID   string    `json:"approver_id"`
	ApproverRole string    `json:"approver_role"`
	Timestamp    time.Time `json:"timestamp"`
	Comment      string    `json:"comment,omitempty"`
}

// HasApprovalFromRole reports whether the role already approved this request.
// Approvals are keyed by role so a single role can never be counted twice.
func (r *BreakGlassRequest) HasApprovalFromRole(role string) bool {
	for _, approval := range r.Approvals {
		if approval.ApproverRole == role {
			return true
		}
	}
	return false
}

// Terminal reports whether the request can make no further transitions other
// than expiry bookkeeping.
func (r *BreakGlassRequest) Terminal() bool {
	switch r.Status {
	case BreakGlassStatusExpired, BreakGlassStatusDenied, BreakGlassStatusRevoked:
		return true
	}
	return false
}
