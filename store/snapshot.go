// store/snapshot.go
package store

import (
	"time"

	"github.com/tea0112/ecm-identity-service-sub001/model"
)

// Snapshot is an immutable, versioned view of one tenant's authorization
// state. Readers dereference the current snapshot once per call and evaluate
// against it without locking; writers build a replacement and swap a single
// pointer. Records reachable from a snapshot are never mutated.
type Snapshot struct {
	Tenant  string
	Version int64
	TakenAt time.Time

	policies               []*model.Policy
	assignmentsByID        map[string]*model.RoleAssignment
	assignmentsByPrincipal map[string][]*model.RoleAssignment
	consentsByPrincipal    map[string][]*model.ConsentGrant
	marks                  map[string]map[string]*model.RevocationMark
}

// Policies returns the latest version of every policy in the tenant,
// including disabled and rolled-back ones; the evaluator filters on status.
func (s *Snapshot) Policies() []*model.Policy {
	return s.policies
}

// AssignmentsFor returns all role assignments held by the principal.
func (s *Snapshot) AssignmentsFor(principalID string) []*model.RoleAssignment {
	return s.assignmentsByPrincipal[principalID]
}

// Assignment looks up a role assignment by id.
func (s *Snapshot) Assignment(id string) (*model.RoleAssignment, bool) {
	a, ok := s.assignmentsByID[id]
	return a, ok
}

// ConsentsFor returns all consent grants created by the principal, withdrawn
// ones included.
func (s *Snapshot) ConsentsFor(principalID string) []*model.ConsentGrant {
	return s.consentsByPrincipal[principalID]
}

// Mark returns the revocation mark for a target, if one exists.
func (s *Snapshot) Mark(targetType, targetID string) (*model.RevocationMark, bool) {
	byID, ok := s.marks[targetType]
	if !ok {
		return nil, false
	}
	m, ok := byID[targetID]
	return m, ok
}
