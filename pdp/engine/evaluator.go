// pdp/engine/evaluator.go
package engine

import (
	"time"

	"github.com/tea0112/ecm-identity-service-sub001/model"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
	"github.com/tea0112/ecm-identity-service-sub001/store"
)

// Evaluator decides requests against an immutable snapshot. It holds no
// mutable state of its own: everything it needs is on the snapshot, so
// concurrent evaluations never contend.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// effectiveGrant is one usable role assignment with the restriction set that
// survives the delegation chain, plus the ids of every assignment in the
// chain that a revocation mark could invalidate.
type effectiveGrant struct {
	assignment *model.RoleAssignment
	chain      []string
}

// policyEvaluation records how one policy related to the request.
type policyEvaluation struct {
	policy   *model.Policy
	matched  bool
	viaRoles []string
}

// Evaluate produces a decision for one request against one snapshot. The
// decision carries the snapshot version; the caller stamps the validity
// horizon.
func (e *Evaluator) Evaluate(snapshot *store.Snapshot, request pdp_model.AccessRequest, now time.Time) pdp_model.Decision {
	decision := pdp_model.Decision{
		Subject:         request.Subject,
		Resource:        request.Resource,
		Action:          request.Action,
		SnapshotVersion: snapshot.Version,
		EvaluatedAt:     now,
	}

	roles, grantsByRole := e.resolveEffectiveRoles(snapshot, request.Subject, request.Action, now)

	var evaluations []policyEvaluation
	for _, policy := range snapshot.Policies() {
		if !policy.Active() {
			continue
		}
		evaluation := e.evaluatePolicy(policy, request, roles)
		if evaluation.matched {
			evaluations = append(evaluations, evaluation)
		}
	}

	authoritative := combine(evaluations)
	if authoritative == nil {
		decision.Effect = model.EffectDeny
		decision.Reason = pdp_model.ReasonNoMatchingPolicy
		return decision
	}

	decision.MatchedPolicyID = authoritative.policy.ID
	if authoritative.policy.Effect == model.EffectDeny {
		decision.Effect = model.EffectDeny
		decision.Reason = pdp_model.ReasonExplicitDeny
		return decision
	}

	// Consent gates an otherwise-allowing match before anything else: absent
	// or withdrawn consent is a deny even though the policy allows.
	if authoritative.policy.ConsentRequired {
		if reason, ok := e.checkConsent(snapshot, request); !ok {
			decision.Effect = model.EffectDeny
			decision.Reason = reason
			return decision
		}
	}

	// Revocation is the last gate before an allow leaves the engine: the
	// subject, their session, and every assignment the match rode on must
	// all be unmarked.
	contributing := contributingGrants(authoritative, grantsByRole)
	if e.revoked(snapshot, request.Subject, contributing, now) {
		decision.Effect = model.EffectDeny
		decision.Reason = pdp_model.ReasonRevoked
		return decision
	}

	decision.Effect = model.EffectAllow
	decision.Reason = pdp_model.ReasonPolicyMatch
	for _, grant := range contributing {
		if grant.assignment.Type == model.AssignmentTypeBreakGlass {
			decision.Reason = pdp_model.ReasonBreakGlass
			break
		}
	}
	return decision
}

// resolveEffectiveRoles computes the subject's usable roles for this action:
// direct assignments, delegated grants narrowed by every ancestor's
// restrictions, and active break-glass grants.
func (e *Evaluator) resolveEffectiveRoles(snapshot *store.Snapshot, subject pdp_model.Subject, action string, now time.Time) (map[string]bool, map[string][]effectiveGrant) {
	roles := make(map[string]bool)
	grantsByRole := make(map[string][]effectiveGrant)

	for _, assignment := range snapshot.AssignmentsFor(subject.ID) {
		if !assignment.Usable(now) {
			continue
		}

		restrictions := assignment.Restrictions
		chain := []string{assignment.ID}
		usable := true

		// Walk the delegation chain iteratively. The hop cap bounds the
		// traversal if parent links ever form a cycle.
		current := assignment
		for hops := 0; current.ParentAssignmentID != "" && hops < 64; hops++ {
			parent, ok := snapshot.Assignment(current.ParentAssignmentID)
			if !ok || !parent.Usable(now) {
				usable = false
				break
			}
			restrictions = restrictions.Intersect(parent.Restrictions)
			chain = append(chain, parent.ID)
			current = parent
		}
		if !usable || !restrictions.Permits(action) {
			continue
		}

		roles[assignment.RoleName] = true
		grantsByRole[assignment.RoleName] = append(grantsByRole[assignment.RoleName], effectiveGrant{
			assignment: assignment,
			chain:      chain,
		})
	}
	return roles, grantsByRole
}

// evaluatePolicy checks subject, resource, action matchers and conditions.
func (e *Evaluator) evaluatePolicy(policy *model.Policy, request pdp_model.AccessRequest, roles map[string]bool) policyEvaluation {
	evaluation := policyEvaluation{policy: policy}

	var viaRoles []string
	subjectMatched := false
	for _, pattern := range policy.Subjects {
		match := matchSubject(pattern, request.Subject, roles)
		if match.matched {
			subjectMatched = true
			if match.role != "" {
				viaRoles = append(viaRoles, match.role)
			}
		}
	}
	if !subjectMatched {
		return evaluation
	}

	resourceMatched := false
	for _, pattern := range policy.Resources {
		if ParseMatcher(pattern).Matches(request.Resource) {
			resourceMatched = true
			break
		}
	}
	if !resourceMatched {
		return evaluation
	}

	actionMatched := false
	for _, pattern := range policy.Actions {
		if ParseMatcher(pattern).Matches(request.Action) {
			actionMatched = true
			break
		}
	}
	if !actionMatched {
		return evaluation
	}

	for _, condition := range policy.Conditions {
		if !evaluateCondition(condition, request) {
			return evaluation
		}
	}

	evaluation.matched = true
	evaluation.viaRoles = viaRoles
	return evaluation
}

// combine applies the precedence rule: any matching deny beats any matching
// allow regardless of priority; among matches of the winning effect the
// lowest priority number is authoritative.
func combine(evaluations []policyEvaluation) *policyEvaluation {
	var bestDeny, bestAllow *policyEvaluation
	for i := range evaluations {
		evaluation := &evaluations[i]
		switch evaluation.policy.Effect {
		case model.EffectDeny:
			if bestDeny == nil || evaluation.policy.Priority < bestDeny.policy.Priority {
				bestDeny = evaluation
			}
		case model.EffectAllow:
			if bestAllow == nil || evaluation.policy.Priority < bestAllow.policy.Priority {
				bestAllow = evaluation
			}
		}
	}
	if bestDeny != nil {
		return bestDeny
	}
	return bestAllow
}

// checkConsent looks for an effective grant from the principal to the
// calling application covering the resource and action.
func (e *Evaluator) checkConsent(snapshot *store.Snapshot, request pdp_model.AccessRequest) (string, bool) {
	withdrawn := false
	for _, consent := range snapshot.ConsentsFor(request.Subject.ID) {
		if consent.ApplicationID != request.Subject.ApplicationID {
			continue
		}
		if !ParseMatcher(consent.ResourcePattern).Matches(request.Resource) {
			continue
		}
		if consent.WithdrawnAt != nil {
			withdrawn = true
			continue
		}
		if consent.Effective(request.Action) {
			return "", true
		}
	}
	if withdrawn {
		return pdp_model.ReasonConsentWithdrawn, false
	}
	return pdp_model.ReasonConsentNotGranted, false
}

// contributingGrants returns the grants whose roles carried the
// authoritative match. A match that rode no role (direct user or wildcard
// pattern) contributes no assignments, but user and session marks still
// apply.
func contributingGrants(authoritative *policyEvaluation, grantsByRole map[string][]effectiveGrant) []effectiveGrant {
	var grants []effectiveGrant
	for _, role := range authoritative.viaRoles {
		grants = append(grants, grantsByRole[role]...)
	}
	return grants
}

// revoked checks the subject's user id, active session, and every assignment
// in every contributing delegation chain against the revocation marks.
func (e *Evaluator) revoked(snapshot *store.Snapshot, subject pdp_model.Subject, grants []effectiveGrant, now time.Time) bool {
	if mark, ok := snapshot.Mark(model.RevocationTargetUser, subject.ID); ok && mark.Applies(now) {
		return true
	}
	if subject.SessionID != "" {
		if mark, ok := snapshot.Mark(model.RevocationTargetSession, subject.SessionID); ok && mark.Applies(now) {
			return true
		}
	}
	for _, grant := range grants {
		for _, assignmentID := range grant.chain {
			if mark, ok := snapshot.Mark(model.RevocationTargetAssignment, assignmentID); ok && mark.Applies(now) {
				return true
			}
		}
	}
	return false
}
