// model/assignment.go
package model

import "time"

const (
	AssignmentTypeDirect     = "DIRECT"
	AssignmentTypeJIT        = "JIT"
	AssignmentTypeDelegated  = "DELEGATED"
	AssignmentTypeBreakGlass = "BREAK_GLASS"
)

const (
	AssignmentStatusPendingApproval = "PENDING_APPROVAL"
	AssignmentStatusActive          = "ACTIVE"
	AssignmentStatusExpired         = "EXPIRED"
	AssignmentStatusRevoked         = "REVOKED"
)

// RoleAssignment binds a principal to a role within a scope. Delegated
// assignments reference their parent; depth strictly increases along the
// chain and never exceeds the root's max depth.
type RoleAssignment struct {
	ID                 string         `json:"id"`
	TenantID           string         `json:"tenant_id"`
	PrincipalID        string         `json:"principal_id"`
	RoleName           string         `json:"role_name"`
	Scope              string         `json:"scope"`
	Type               string         `json:"type"`
	Status             string         `json:"status"`
	ExpiresAt          *time.Time     `json:"expires_at,omitempty"`
	Justification      string         `json:"justification,omitempty"`
	DelegationDepth    int            `json:"delegation_depth"`
	MaxDelegationDepth int            `json:"max_delegation_depth"`
	Restrictions       RestrictionSet `json:"restrictions"`
	ApprovalRequired   bool           `json:"approval_required"`
	ParentAssignmentID string         `json:"parent_assignment_id,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Usable reports whether the assignment contributes permissions at the given
// instant.
func (a *RoleAssignment) Usable(now time.Time) bool {
	if a.Status != AssignmentStatusActive {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return true
}

// RestrictionSet narrows what an assignment may be used for. An empty
// AllowedActions list means "no action restriction"; ExcludedActions always
// subtract.
type RestrictionSet struct {
	AllowedActions  []string `json:"allowed_actions,omitempty"`
	ExcludedActions []string `json:"excluded_actions,omitempty"`
}

// Permits reports whether the restriction set allows the action.
func (r RestrictionSet) Permits(action string) bool {
	for _, excluded := range r.ExcludedActions {
		if excluded == action || excluded == "*" {
			return false
		}
	}
	if len(r.AllowedActions) == 0 {
		return true
	}
	for _, allowed := range r.AllowedActions {
		if allowed == action || allowed == "*" {
			return true
		}
	}
	return false
}

// Intersect combines two restriction sets so the result is never wider than
// either input. Delegation uses this to guarantee grants only narrow.
func (r RestrictionSet) Intersect(other RestrictionSet) RestrictionSet {
	result := RestrictionSet{}

	// Union of exclusions: anything either side forbids stays forbidden.
	seen := make(map[string]bool)
	for _, action := range append(append([]string{}, r.ExcludedActions...), other.ExcludedActions...) {
		if !seen[action] {
			seen[action] = true
			result.ExcludedActions = append(result.ExcludedActions, action)
		}
	}

	switch {
	case len(r.AllowedActions) == 0:
		result.AllowedActions = append([]string{}, other.AllowedActions...)
	case len(other.AllowedActions) == 0:
		result.AllowedActions = append([]string{}, r.AllowedActions...)
	default:
		allowed := make(map[string]bool, len(r.AllowedActions))
		for _, action := range r.AllowedActions {
			allowed[action] = true
		}
		for _, action := range other.AllowedActions {
			if allowed[action] {
				result.AllowedActions = append(result.AllowedActions, action)
			}
		}
		if len(result.AllowedActions) == 0 {
			// Disjoint allow lists intersect to nothing: forbid everything.
			result.AllowedActions = nil
			result.ExcludedActions = []string{"*"}
		}
	}

	return result
}
