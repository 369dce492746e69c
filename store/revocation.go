// store/revocation.go
package store

import (
	"context"
	"time"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	"github.com/tea0112/ecm-identity-service-sub001/propagation"
)

// Revoke places an invalidated-since watermark on a target and returns the
// version at which it takes effect. Revoking an already-revoked target is a
// no-op: the existing version is returned and no event is published, so the
// stream stays gap-free and decisions see exactly one effective bump.
func (s *Store) Revoke(ctx context.Context, tenantID, targetType, targetID, reason string) (int64, error) {
	switch targetType {
	case model.RevocationTargetUser, model.RevocationTargetSession, model.RevocationTargetAssignment:
	default:
		return 0, authz_errors.ErrRevocationTargetUnknown
	}

	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	mark := model.RevocationMark{
		TargetType:     targetType,
		TargetID:       targetID,
		EffectiveSince: time.Now(),
		Reason:         reason,
	}
	if !ts.addMarkLocked(mark) {
		return ts.marks[targetType][targetID].Version, nil
	}

	version := s.commit(ctx, ts, propagation.KindRevocation, targetType, targetID)
	ts.marks[targetType][targetID].Version = version
	s.persistMark(ctx, *ts.marks[targetType][targetID])
	return version, nil
}

// MassRevoke invalidates everything a principal holds: a user-level mark
// plus revocation of every role assignment (and its delegation descendants),
// committed as a single version so enforcement is all-or-nothing.
func (s *Store) MassRevoke(ctx context.Context, tenantID, principalID, reason string) ([]string, int64, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	ts.addMarkLocked(model.RevocationMark{
		TargetType:     model.RevocationTargetUser,
		TargetID:       principalID,
		EffectiveSince: now,
		Reason:         reason,
	})

	// Revoke every assignment rooted at this principal, cascading through
	// delegation chains so delegates lose derived permissions too.
	var revoked []string
	var queue []string
	for id, assignment := range ts.assignments {
		if assignment.PrincipalID == principalID && assignment.Status != model.AssignmentStatusRevoked {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		assignment, ok := ts.assignments[id]
		if !ok || assignment.Status == model.AssignmentStatusRevoked {
			continue
		}
		updated := *assignment
		updated.Status = model.AssignmentStatusRevoked
		updated.UpdatedAt = now
		ts.assignments[id] = &updated
		revoked = append(revoked, id)

		ts.addMarkLocked(model.RevocationMark{
			TargetType:     model.RevocationTargetAssignment,
			TargetID:       id,
			EffectiveSince: now,
			Reason:         reason,
		})
		queue = append(queue, ts.childrenByParent[id]...)
	}

	version := s.commit(ctx, ts, propagation.KindMassRevocation, model.RevocationTargetUser, principalID)
	if mark, ok := ts.marks[model.RevocationTargetUser][principalID]; ok {
		mark.Version = version
		s.persistMark(ctx, *mark)
	}
	for _, id := range revoked {
		s.persistAssignment(ctx, *ts.assignments[id])
	}
	return revoked, version, nil
}

// IsRevoked reports whether the target carries a mark in force at the given
// time, consulting live state rather than a snapshot. The synchronous
// fallback path uses this when an instance cannot trust its snapshot.
func (s *Store) IsRevoked(tenantID, targetType, targetID string, at time.Time) bool {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	byID, ok := ts.marks[targetType]
	if !ok {
		return false
	}
	mark, ok := byID[targetID]
	return ok && mark.Applies(at)
}
