// model/consent.go
package model

import "time"

// ConsentGrant records a principal's consent for an application to act on a
// resource pattern. A withdrawn grant is permanently ineffective; consent is
// re-established only by creating a new grant.
type ConsentGrant struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	PrincipalID     string     `json:"principal_id"`
	ApplicationID   string     `json:"application_id"`
	ResourcePattern string     `json:"resource_pattern"`
	Actions         []string   `json:"actions"`
	Purpose         string     `json:"purpose"`
	GrantedAt       time.Time  `json:"granted_at"`
	WithdrawnAt     *time.Time `json:"withdrawn_at,omitempty"`
}

// Effective reports whether the grant covers the action right now.
func (g *ConsentGrant) Effective(action string) bool {
	if g.WithdrawnAt != nil {
		return false
	}
	for _, a := range g.Actions {
		if a == action || a == "*" {
			return true
		}
	}
	return false
}
