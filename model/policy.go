// model/policy.go
package model

import (
	"time"
)

const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

const (
	PolicyStatusActive     = "ACTIVE"
	PolicyStatusDisabled   = "DISABLED"
	PolicyStatusRolledBack = "ROLLED_BACK"
)

// Policy is a tenant-scoped rule. A policy id + version pair is immutable
// once written; updates append a new version and link it to the one it
// supersedes instead of mutating history.
type Policy struct {
	ID              string      `json:"id"`
	TenantID        string      `json:"tenant_id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Effect          string      `json:"effect"` // "allow" or "deny"
	Subjects        []string    `json:"subjects"`   // e.g. "role:ADMIN", "user:u-1", "application:billing", "*"
	Resources       []string    `json:"resources"`  // hierarchical, e.g. "document:sensitive:*"
	Actions         []string    `json:"actions"`    // e.g. "read", "*"
	Conditions      []Condition `json:"conditions"`
	ConsentRequired bool        `json:"consent_required"`
	Priority        int         `json:"priority"` // lower number wins ties among same-effect matches
	Version         int         `json:"version"`
	SupersededBy    string      `json:"superseded_by,omitempty"` // id:version of the replacing policy
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Active reports whether the policy participates in evaluation.
func (p *Policy) Active() bool {
	return p.Status == PolicyStatusActive
}

// Condition is an attribute or relationship predicate evaluated against the
// request context.
type Condition struct {
	Attribute     string        `json:"attribute"`
	Operator      string        `json:"operator"` // "eq", "ne", "in", "contains", "gt", "lt", "prefix"
	Value         interface{}   `json:"value"`
	SubConditions *ConditionSet `json:"sub_conditions,omitempty"`
}

type ConditionSet struct {
	Operator   string      `json:"operator"` // "AND" or "OR"
	Conditions []Condition `json:"conditions"`
}

// PolicySearchCriteria filters a policy listing over the latest version of
// each policy. Zero-valued fields do not filter.
type PolicySearchCriteria struct {
	Name        string
	Effect      string
	MinPriority int
	MaxPriority int
	Status      string
	Limit       int
}
