// store/store.go
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	"github.com/tea0112/ecm-identity-service-sub001/propagation"
)

// Persister mirrors accepted writes into durable storage. The in-memory
// store stays authoritative for decisions; persistence failures are logged
// and retried out of band rather than blocking the revocation path.
type Persister interface {
	SavePolicy(ctx context.Context, policy model.Policy) error
	SaveAssignment(ctx context.Context, assignment model.RoleAssignment) error
	SaveConsent(ctx context.Context, consent model.ConsentGrant) error
	SaveRevocationMark(ctx context.Context, mark model.RevocationMark) error
	SaveBreakGlass(ctx context.Context, request model.BreakGlassRequest) error
}

// Store holds the versioned authorization state for all tenants. Writes are
// serialized per tenant; snapshots are copy-on-write and swapped atomically,
// so a reader never observes a half-applied write and no two writes share a
// version number.
type Store struct {
	mu        sync.RWMutex
	tenants   map[string]*tenantStore
	publisher propagation.Publisher
	persister Persister
}

func NewStore(publisher propagation.Publisher, persister Persister) *Store {
	return &Store{
		tenants:   make(map[string]*tenantStore),
		publisher: publisher,
		persister: persister,
	}
}

type tenantStore struct {
	mu      sync.Mutex // serializes writes; readers go through the snapshot
	tenant  string
	version int64

	policyHistory    map[string][]*model.Policy
	assignments      map[string]*model.RoleAssignment
	childrenByParent map[string][]string
	consents         map[string]*model.ConsentGrant
	marks            map[string]map[string]*model.RevocationMark
	breakGlass       map[string]*model.BreakGlassRequest

	current atomic.Pointer[Snapshot]
}

func (s *Store) tenant(tenantID string) *tenantStore {
	s.mu.RLock()
	ts, ok := s.tenants[tenantID]
	s.mu.RUnlock()
	if ok {
		return ts
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok = s.tenants[tenantID]; ok {
		return ts
	}
	ts = &tenantStore{
		tenant:           tenantID,
		policyHistory:    make(map[string][]*model.Policy),
		assignments:      make(map[string]*model.RoleAssignment),
		childrenByParent: make(map[string][]string),
		consents:         make(map[string]*model.ConsentGrant),
		marks:            make(map[string]map[string]*model.RevocationMark),
		breakGlass:       make(map[string]*model.BreakGlassRequest),
	}
	ts.current.Store(ts.buildSnapshot())
	s.tenants[tenantID] = ts
	return ts
}

// Snapshot returns the current immutable snapshot for the tenant. A tenant
// with no recorded state yields an empty version-0 snapshot, which the
// evaluator resolves to default deny.
func (s *Store) Snapshot(tenantID string) *Snapshot {
	return s.tenant(tenantID).current.Load()
}

// CurrentVersion returns the tenant's latest committed version.
func (s *Store) CurrentVersion(tenantID string) int64 {
	return s.tenant(tenantID).current.Load().Version
}

// commit assigns the next version, swaps in a fresh snapshot and publishes
// the propagation event. Callers hold ts.mu.
func (s *Store) commit(ctx context.Context, ts *tenantStore, kind, targetType, targetID string) int64 {
	ts.version++
	snapshot := ts.buildSnapshot()
	ts.current.Store(snapshot)

	if s.publisher != nil {
		event := propagation.Event{
			Tenant:     ts.tenant,
			Version:    ts.version,
			Kind:       kind,
			TargetType: targetType,
			TargetID:   targetID,
			OccurredAt: time.Now(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			// The version is durably recorded; subscribers that miss the
			// event detect the gap and resynchronize.
			logger.Error("Failed to publish propagation event",
				zap.Error(err),
				zap.String("tenant", ts.tenant),
				zap.Int64("version", ts.version),
				zap.String("kind", kind))
		}
	}
	return ts.version
}

func (ts *tenantStore) buildSnapshot() *Snapshot {
	snapshot := &Snapshot{
		Tenant:                 ts.tenant,
		Version:                ts.version,
		TakenAt:                time.Now(),
		assignmentsByID:        make(map[string]*model.RoleAssignment, len(ts.assignments)),
		assignmentsByPrincipal: make(map[string][]*model.RoleAssignment),
		consentsByPrincipal:    make(map[string][]*model.ConsentGrant),
		marks:                  make(map[string]map[string]*model.RevocationMark, len(ts.marks)),
	}
	for _, history := range ts.policyHistory {
		if len(history) > 0 {
			snapshot.policies = append(snapshot.policies, history[len(history)-1])
		}
	}
	for id, assignment := range ts.assignments {
		snapshot.assignmentsByID[id] = assignment
		snapshot.assignmentsByPrincipal[assignment.PrincipalID] = append(snapshot.assignmentsByPrincipal[assignment.PrincipalID], assignment)
	}
	for _, consent := range ts.consents {
		snapshot.consentsByPrincipal[consent.PrincipalID] = append(snapshot.consentsByPrincipal[consent.PrincipalID], consent)
	}
	for targetType, byID := range ts.marks {
		copied := make(map[string]*model.RevocationMark, len(byID))
		for id, mark := range byID {
			copied[id] = mark
		}
		snapshot.marks[targetType] = copied
	}
	return snapshot
}

func (s *Store) persistPolicy(ctx context.Context, policy model.Policy) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SavePolicy(ctx, policy); err != nil {
		logger.Error("Failed to persist policy", zap.Error(err), zap.String("policyID", policy.ID))
	}
}

func (s *Store) persistAssignment(ctx context.Context, assignment model.RoleAssignment) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveAssignment(ctx, assignment); err != nil {
		logger.Error("Failed to persist assignment", zap.Error(err), zap.String("assignmentID", assignment.ID))
	}
}

func (s *Store) persistMark(ctx context.Context, mark model.RevocationMark) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveRevocationMark(ctx, mark); err != nil {
		logger.Error("Failed to persist revocation mark", zap.Error(err), zap.String("targetID", mark.TargetID))
	}
}

// PutPolicy appends a new policy version. The previous latest version, if
// any, is linked to its successor; history is never mutated in place.
func (s *Store) PutPolicy(ctx context.Context, policy model.Policy) (model.Policy, int64, error) {
	if policy.TenantID == "" || policy.ID == "" {
		return model.Policy{}, 0, authz_errors.ErrInvalidPolicyData
	}
	ts := s.tenant(policy.TenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	history := ts.policyHistory[policy.ID]
	if len(history) == 0 {
		policy.Version = 1
		policy.CreatedAt = now
	} else {
		previous := history[len(history)-1]
		policy.Version = previous.Version + 1
		policy.CreatedAt = previous.CreatedAt

		superseded := *previous
		superseded.SupersededBy = fmt.Sprintf("%s:%d", policy.ID, policy.Version)
		ts.policyHistory[policy.ID][len(history)-1] = &superseded
	}
	policy.UpdatedAt = now
	if policy.Status == "" {
		policy.Status = model.PolicyStatusActive
	}

	stored := policy
	ts.policyHistory[policy.ID] = append(ts.policyHistory[policy.ID], &stored)

	version := s.commit(ctx, ts, propagation.KindPolicyChanged, "policy", policy.ID)
	s.persistPolicy(ctx, stored)
	return stored, version, nil
}

// RollbackPolicy restores the version preceding the current one. The current
// version is marked ROLLED_BACK and the restored content is appended as a new
// version, so history still never rewrites.
func (s *Store) RollbackPolicy(ctx context.Context, tenantID, policyID string) (model.Policy, int64, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	history := ts.policyHistory[policyID]
	if len(history) == 0 {
		return model.Policy{}, 0, authz_errors.ErrPolicyNotFound
	}
	if len(history) < 2 {
		return model.Policy{}, 0, authz_errors.ErrNoPreviousVersion
	}

	now := time.Now()
	current := history[len(history)-1]
	previous := history[len(history)-2]

	restored := *previous
	restored.Version = current.Version + 1
	restored.Status = model.PolicyStatusActive
	restored.SupersededBy = ""
	restored.UpdatedAt = now

	rolledBack := *current
	rolledBack.Status = model.PolicyStatusRolledBack
	rolledBack.SupersededBy = fmt.Sprintf("%s:%d", policyID, restored.Version)
	rolledBack.UpdatedAt = now

	ts.policyHistory[policyID][len(history)-1] = &rolledBack
	ts.policyHistory[policyID] = append(ts.policyHistory[policyID], &restored)

	version := s.commit(ctx, ts, propagation.KindPolicyRolledBack, "policy", policyID)
	s.persistPolicy(ctx, rolledBack)
	s.persistPolicy(ctx, restored)
	return restored, version, nil
}

// GetPolicy returns the latest version of a policy.
func (s *Store) GetPolicy(tenantID, policyID string) (model.Policy, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	history := ts.policyHistory[policyID]
	if len(history) == 0 {
		return model.Policy{}, authz_errors.ErrPolicyNotFound
	}
	return *history[len(history)-1], nil
}

// SearchPolicies filters the latest version of each policy against the
// criteria. Zero-valued fields do not filter; a zero MaxPriority leaves the
// range unbounded above. Results come back priority first, then id.
func (s *Store) SearchPolicies(tenantID string, criteria model.PolicySearchCriteria) []model.Policy {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var matches []model.Policy
	for _, history := range ts.policyHistory {
		if len(history) == 0 {
			continue
		}
		policy := history[len(history)-1]
		if criteria.Name != "" && !strings.Contains(strings.ToLower(policy.Name), strings.ToLower(criteria.Name)) {
			continue
		}
		if criteria.Effect != "" && policy.Effect != criteria.Effect {
			continue
		}
		if criteria.Status != "" && policy.Status != criteria.Status {
			continue
		}
		if policy.Priority < criteria.MinPriority {
			continue
		}
		if criteria.MaxPriority > 0 && policy.Priority > criteria.MaxPriority {
			continue
		}
		matches = append(matches, *policy)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority < matches[j].Priority
		}
		return matches[i].ID < matches[j].ID
	})
	if criteria.Limit > 0 && len(matches) > criteria.Limit {
		matches = matches[:criteria.Limit]
	}
	return matches
}

// CreateAssignment records a new role assignment.
func (s *Store) CreateAssignment(ctx context.Context, assignment model.RoleAssignment) (model.RoleAssignment, int64, error) {
	if assignment.TenantID == "" || assignment.ID == "" || assignment.PrincipalID == "" {
		return model.RoleAssignment{}, 0, authz_errors.ErrInvalidDelegationData
	}
	ts := s.tenant(assignment.TenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.Status == "" {
		assignment.Status = model.AssignmentStatusActive
	}

	stored := assignment
	ts.assignments[assignment.ID] = &stored
	if assignment.ParentAssignmentID != "" {
		ts.childrenByParent[assignment.ParentAssignmentID] = append(ts.childrenByParent[assignment.ParentAssignmentID], assignment.ID)
	}

	version := s.commit(ctx, ts, propagation.KindAssignmentCreated, "role-assignment", assignment.ID)
	s.persistAssignment(ctx, stored)
	return stored, version, nil
}

// GetAssignment returns a role assignment by id.
func (s *Store) GetAssignment(tenantID, assignmentID string) (model.RoleAssignment, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	assignment, ok := ts.assignments[assignmentID]
	if !ok {
		return model.RoleAssignment{}, authz_errors.ErrAssignmentNotFound
	}
	return *assignment, nil
}

// RevokeAssignmentCascade revokes the assignment and every descendant
// reachable through parent references. The walk is iterative and the whole
// cascade lands in one version, so no reader ever sees a partially revoked
// chain. Returns the ids revoked, root first.
func (s *Store) RevokeAssignmentCascade(ctx context.Context, tenantID, assignmentID, reason string) ([]string, int64, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	root, ok := ts.assignments[assignmentID]
	if !ok {
		return nil, 0, authz_errors.ErrAssignmentNotFound
	}
	if root.Status == model.AssignmentStatusRevoked {
		// Idempotent: the chain is already down, no new version.
		return nil, ts.version, nil
	}

	revoked := ts.revokeCascadeLocked(assignmentID, reason, time.Now())

	version := s.commit(ctx, ts, propagation.KindAssignmentRevoked, "role-assignment", assignmentID)
	s.persistRevoked(ctx, ts, revoked)
	return revoked, version, nil
}

// revokeCascadeLocked walks the assignment and every descendant reachable
// through parent references, revoking and marking each. Callers hold ts.mu
// and commit. Returns the ids revoked, root first.
func (ts *tenantStore) revokeCascadeLocked(assignmentID, reason string, now time.Time) []string {
	var revoked []string
	queue := []string{assignmentID}
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
	return revoked
}

func (s *Store) persistRevoked(ctx context.Context, ts *tenantStore, revoked []string) {
	for _, id := range revoked {
		s.persistAssignment(ctx, *ts.assignments[id])
		if mark, ok := ts.marks[model.RevocationTargetAssignment][id]; ok {
			s.persistMark(ctx, *mark)
		}
	}
}

// addMarkLocked records a mark without bumping the version; callers commit.
func (ts *tenantStore) addMarkLocked(mark model.RevocationMark) bool {
	byID, ok := ts.marks[mark.TargetType]
	if !ok {
		byID = make(map[string]*model.RevocationMark)
		ts.marks[mark.TargetType] = byID
	}
	if _, exists := byID[mark.TargetID]; exists {
		return false
	}
	stored := mark
	byID[mark.TargetID] = &stored
	return true
}

// PutConsent records a consent grant.
func (s *Store) PutConsent(ctx context.Context, consent model.ConsentGrant) (model.ConsentGrant, int64, error) {
	if consent.TenantID == "" || consent.ID == "" || consent.PrincipalID == "" {
		return model.ConsentGrant{}, 0, authz_errors.ErrInvalidConsentData
	}
	ts := s.tenant(consent.TenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if consent.GrantedAt.IsZero() {
		consent.GrantedAt = time.Now()
	}
	stored := consent
	ts.consents[consent.ID] = &stored

	version := s.commit(ctx, ts, propagation.KindConsentGranted, "consent", consent.ID)
	if s.persister != nil {
		if err := s.persister.SaveConsent(ctx, stored); err != nil {
			logger.Error("Failed to persist consent", zap.Error(err), zap.String("consentID", consent.ID))
		}
	}
	return stored, version, nil
}

// WithdrawConsent permanently voids a grant. Withdrawal takes effect with the
// committed version: the next snapshot no longer honors the grant.
func (s *Store) WithdrawConsent(ctx context.Context, tenantID, consentID string) (int64, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	consent, ok := ts.consents[consentID]
	if !ok {
		return 0, authz_errors.ErrConsentNotFound
	}
	if consent.WithdrawnAt != nil {
		return ts.version, nil
	}

	now := time.Now()
	updated := *consent
	updated.WithdrawnAt = &now
	ts.consents[consentID] = &updated

	version := s.commit(ctx, ts, propagation.KindConsentWithdrawn, "consent", consentID)
	if s.persister != nil {
		if err := s.persister.SaveConsent(ctx, updated); err != nil {
			logger.Error("Failed to persist consent withdrawal", zap.Error(err), zap.String("consentID", consentID))
		}
	}
	return version, nil
}

// GetConsent returns a grant by id, withdrawn or not.
func (s *Store) GetConsent(tenantID, consentID string) (model.ConsentGrant, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	consent, ok := ts.consents[consentID]
	if !ok {
		return model.ConsentGrant{}, authz_errors.ErrConsentNotFound
	}
	return *consent, nil
}

// FindConsent locates a grant by its identifying tuple.
func (s *Store) FindConsent(tenantID, principalID, applicationID, resourcePattern string) (model.ConsentGrant, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, consent := range ts.consents {
		if consent.PrincipalID == principalID &&
			consent.ApplicationID == applicationID &&
			consent.ResourcePattern == resourcePattern &&
			consent.WithdrawnAt == nil {
			return *consent, nil
		}
	}
	return model.ConsentGrant{}, authz_errors.ErrConsentNotFound
}

// SaveBreakGlass upserts a break-glass request record.
func (s *Store) SaveBreakGlass(ctx context.Context, request model.BreakGlassRequest) (int64, error) {
	if request.TenantID == "" || request.ID == "" {
		return 0, authz_errors.ErrInvalidBreakGlassData
	}
	ts := s.tenant(request.TenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	request.UpdatedAt = time.Now()
	stored := request
	ts.breakGlass[request.ID] = &stored

	version := s.commit(ctx, ts, propagation.KindBreakGlassUpdated, "breakglass", request.ID)
	s.persistBreakGlass(ctx, stored)
	return version, nil
}

func (s *Store) persistBreakGlass(ctx context.Context, request model.BreakGlassRequest) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveBreakGlass(ctx, request); err != nil {
		logger.Error("Failed to persist break-glass request", zap.Error(err), zap.String("requestID", request.ID))
	}
}

// ApproveBreakGlass records one approval for the request. The whole
// read-check-append-transition happens under the tenant write lock, so two
// concurrent approvals can never lose each other: each sees the approvals the
// other committed. Approvals are keyed by approver role; a repeated role or
// an already ACTIVE request is a no-op returning the current state. Reaching
// the required count activates the request and its grant (using grantID) in
// one version. Returns the resulting request and whether this call changed it.
func (s *Store) ApproveBreakGlass(ctx context.Context, tenantID, requestID string, approval model.BreakGlassApproval, grantID string) (model.BreakGlassRequest, int64, bool, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	request, ok := ts.breakGlass[requestID]
	if !ok {
		return model.BreakGlassRequest{}, 0, false, authz_errors.ErrBreakGlassNotFound
	}
	if request.Terminal() {
		return model.BreakGlassRequest{}, 0, false, fmt.Errorf("%w: request %s is %s",
			authz_errors.ErrInvalidTransition, requestID, request.Status)
	}
	if request.Status == model.BreakGlassStatusActive || request.HasApprovalFromRole(approval.ApproverRole) {
		return *request, ts.version, false, nil
	}
	now := time.Now()
	if !request.ActivationExpiry.After(now) {
		return model.BreakGlassRequest{}, 0, false, fmt.Errorf("%w: request %s has expired",
			authz_errors.ErrInvalidTransition, requestID)
	}

	updated := *request
	updated.Approvals = append(append([]model.BreakGlassApproval(nil), request.Approvals...), approval)
	updated.UpdatedAt = now

	if len(updated.Approvals) < updated.RequiredApprovalCount {
		updated.Status = model.BreakGlassStatusPartialApproval
		ts.breakGlass[requestID] = &updated

		version := s.commit(ctx, ts, propagation.KindBreakGlassUpdated, "breakglass", requestID)
		s.persistBreakGlass(ctx, updated)
		return updated, version, true, nil
	}

	// Quorum reached: APPROVED is transient, the grant activates in the same
	// version as the status change.
	expiry := updated.ActivationExpiry
	grant := model.RoleAssignment{
		ID:            grantID,
		TenantID:      tenantID,
		PrincipalID:   updated.RequestedBy,
		RoleName:      updated.TargetRole,
		Scope:         updated.Scope,
		Type:          model.AssignmentTypeBreakGlass,
		Status:        model.AssignmentStatusActive,
		ExpiresAt:     &expiry,
		Justification: updated.Justification,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	updated.Status = model.BreakGlassStatusActive
	updated.GrantedAssignmentID = grant.ID
	ts.breakGlass[requestID] = &updated
	ts.assignments[grant.ID] = &grant

	version := s.commit(ctx, ts, propagation.KindBreakGlassActive, "breakglass", requestID)
	s.persistBreakGlass(ctx, updated)
	s.persistAssignment(ctx, grant)
	return updated, version, true, nil
}

// DenyBreakGlass refuses a request that has not yet activated.
func (s *Store) DenyBreakGlass(ctx context.Context, tenantID, requestID string) (model.BreakGlassRequest, int64, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	request, ok := ts.breakGlass[requestID]
	if !ok {
		return model.BreakGlassRequest{}, 0, authz_errors.ErrBreakGlassNotFound
	}
	if request.Status == model.BreakGlassStatusActive || request.Terminal() {
		return model.BreakGlassRequest{}, 0, fmt.Errorf("%w: cannot deny request in %s",
			authz_errors.ErrInvalidTransition, request.Status)
	}

	updated := *request
	updated.Status = model.BreakGlassStatusDenied
	updated.UpdatedAt = time.Now()
	ts.breakGlass[requestID] = &updated

	version := s.commit(ctx, ts, propagation.KindBreakGlassUpdated, "breakglass", requestID)
	s.persistBreakGlass(ctx, updated)
	return updated, version, nil
}

// RevokeBreakGlass terminates an ACTIVE request. The grant and any
// assignments delegated from it are revoked in the same version as the
// status change.
func (s *Store) RevokeBreakGlass(ctx context.Context, tenantID, requestID, reason string) (model.BreakGlassRequest, int64, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	request, ok := ts.breakGlass[requestID]
	if !ok {
		return model.BreakGlassRequest{}, 0, authz_errors.ErrBreakGlassNotFound
	}
	if request.Status != model.BreakGlassStatusActive {
		return model.BreakGlassRequest{}, 0, fmt.Errorf("%w: cannot revoke request in %s",
			authz_errors.ErrInvalidTransition, request.Status)
	}

	now := time.Now()
	updated := *request
	updated.Status = model.BreakGlassStatusRevoked
	updated.UpdatedAt = now
	ts.breakGlass[requestID] = &updated

	var revoked []string
	if updated.GrantedAssignmentID != "" {
		revoked = ts.revokeCascadeLocked(updated.GrantedAssignmentID, reason, now)
	}

	version := s.commit(ctx, ts, propagation.KindBreakGlassRevoked, "breakglass", requestID)
	s.persistBreakGlass(ctx, updated)
	s.persistRevoked(ctx, ts, revoked)
	return updated, version, nil
}

// SweepExpiredBreakGlass expires every request whose activation window has
// passed as of now. ACTIVE requests lose their grant through the normal
// revocation path. Each expiry is re-checked under the tenant write lock, so
// a sweep cannot overwrite an approval that landed after it listed the
// request. Returns the requests that were expired.
func (s *Store) SweepExpiredBreakGlass(ctx context.Context, tenantID string, now time.Time, reason string) []model.BreakGlassRequest {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var expired []model.BreakGlassRequest
	for id, request := range ts.breakGlass {
		switch request.Status {
		case model.BreakGlassStatusRequested, model.BreakGlassStatusPartialApproval, model.BreakGlassStatusActive:
		default:
			continue
		}
		if request.ActivationExpiry.After(now) {
			continue
		}

		updated := *request
		updated.Status = model.BreakGlassStatusExpired
		updated.UpdatedAt = now
		ts.breakGlass[id] = &updated

		var revoked []string
		if request.Status == model.BreakGlassStatusActive && updated.GrantedAssignmentID != "" {
			revoked = ts.revokeCascadeLocked(updated.GrantedAssignmentID, reason, now)
		}

		s.commit(ctx, ts, propagation.KindBreakGlassExpired, "breakglass", id)
		s.persistBreakGlass(ctx, updated)
		s.persistRevoked(ctx, ts, revoked)
		expired = append(expired, updated)
	}
	return expired
}

// GetBreakGlass returns a break-glass request by id.
func (s *Store) GetBreakGlass(tenantID, requestID string) (model.BreakGlassRequest, error) {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	request, ok := ts.breakGlass[requestID]
	if !ok {
		return model.BreakGlassRequest{}, authz_errors.ErrBreakGlassNotFound
	}
	return *request, nil
}

// ListBreakGlassByStatus returns all requests for a tenant in a given status.
func (s *Store) ListBreakGlassByStatus(tenantID, status string) []model.BreakGlassRequest {
	ts := s.tenant(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var requests []model.BreakGlassRequest
	for _, request := range ts.breakGlass {
		if request.Status == status {
			requests = append(requests, *request)
		}
	}
	return requests
}

// Tenants returns the ids of all tenants with recorded state.
func (s *Store) Tenants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	return ids
}
