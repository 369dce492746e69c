// service/authz_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tea0112/ecm-identity-service-sub001/audit"
	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	"github.com/tea0112/ecm-identity-service-sub001/pdp/engine"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
	"github.com/tea0112/ecm-identity-service-sub001/propagation"
	"github.com/tea0112/ecm-identity-service-sub001/store"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

// IAuthzService is the decision engine surface exposed to controllers.
type IAuthzService interface {
	Evaluate(ctx context.Context, tenantID string, request pdp_model.AccessRequest) (*pdp_model.Decision, error)
	EvaluateBatch(ctx context.Context, tenantID string, requests []pdp_model.AccessRequest) ([]pdp_model.Decision, error)
}

// AuthzService orchestrates decision evaluation: tenant gating, snapshot
// freshness, the evaluator itself, the version-scoped decision cache, and
// audit emission.
type AuthzService struct {
	store           *store.Store
	evaluator       *engine.Evaluator
	tracker         *propagation.Tracker
	bus             *propagation.Bus
	remote          propagation.Subscriber
	tenantDirectory TenantDirectory
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	auditService    audit.Service
	propagationSLA  time.Duration
	decisionTTL     time.Duration
}

// NewAuthzService creates a new instance of AuthzService. The decision
// validity horizon is clamped to the propagation SLA: a caller must never be
// told a decision outlives the bound within which a revocation is guaranteed
// to be visible.
func NewAuthzService(
	authzStore *store.Store,
	tenantDirectory TenantDirectory,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	auditService audit.Service,
	bus *propagation.Bus,
	remote propagation.Subscriber,
	propagationSLA time.Duration,
	decisionTTL time.Duration,
) *AuthzService {
	if decisionTTL <= 0 || decisionTTL > propagationSLA {
		decisionTTL = propagationSLA
	}
	return &AuthzService{
		store:           authzStore,
		evaluator:       engine.NewEvaluator(),
		tracker:         propagation.NewTracker(),
		bus:             bus,
		remote:          remote,
		tenantDirectory: tenantDirectory,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		auditService:    auditService,
		propagationSLA:  propagationSLA,
		decisionTTL:     decisionTTL,
	}
}

// Start subscribes to both legs of the propagation channel: the in-process
// bus and, when wired, the cross-instance Redis stream. A version gap on
// either leg means an event was lost; the instance resynchronizes from the
// store instead of serving potentially stale allows.
func (s *AuthzService) Start(ctx context.Context) {
	if s.bus != nil {
		go s.consume(ctx, s.bus.Subscribe("*"))
	}
	if s.remote != nil {
		go s.consume(ctx, s.remote.Subscribe(ctx, "*"))
	}
}

func (s *AuthzService) consume(ctx context.Context, events <-chan propagation.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !s.tracker.Observe(event) {
				logger.Warn("Propagation version gap detected, resynchronizing",
					zap.String("tenant", event.Tenant),
					zap.Int64("version", event.Version),
					zap.Error(authz_errors.ErrVersionGap))
				s.resync(event.Tenant)
			}
		}
	}
}

func (s *AuthzService) resync(tenantID string) {
	version := s.store.CurrentVersion(tenantID)
	s.tracker.Resync(tenantID, version)
	logger.Info("Resynchronized with store",
		zap.String("tenant", tenantID),
		zap.Int64("version", version))
}

// freshSnapshot returns a snapshot the instance may serve allow decisions
// from. If freshness cannot be proven it refreshes synchronously once; a
// snapshot that still cannot be trusted yields fresh=false and the caller
// fails closed.
func (s *AuthzService) freshSnapshot(tenantID string) (*store.Snapshot, bool) {
	snapshot := s.store.Snapshot(tenantID)
	if s.tracker.Fresh(tenantID, snapshot.Version, s.store.CurrentVersion(tenantID), s.propagationSLA) {
		return snapshot, true
	}

	// Fall back to a synchronous read of the authoritative store.
	snapshot = s.store.Snapshot(tenantID)
	s.tracker.Resync(tenantID, snapshot.Version)
	if s.tracker.Fresh(tenantID, snapshot.Version, s.store.CurrentVersion(tenantID), s.propagationSLA) {
		return snapshot, true
	}
	return snapshot, false
}

// Evaluate decides a single request.
func (s *AuthzService) Evaluate(ctx context.Context, tenantID string, request pdp_model.AccessRequest) (*pdp_model.Decision, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id cannot be empty", authz_errors.ErrInvalidRequest)
	}
	if err := s.validationUtil.ValidateAccessRequest(request); err != nil {
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrInvalidRequest, err)
	}

	status, err := s.tenantDirectory.TenantStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if status != TenantStatusActive {
		decision := s.stamped(denyDecision(request, pdp_model.ReasonTenantInactive, now), now)
		s.auditDecision(ctx, tenantID, decision)
		return &decision, nil
	}

	snapshot, fresh := s.freshSnapshot(tenantID)
	if !fresh {
		logger.Warn("Serving fail-closed deny from stale snapshot",
			zap.String("tenant", tenantID),
			zap.Int64("snapshotVersion", snapshot.Version),
			zap.Error(authz_errors.ErrStaleSnapshot))
		decision := s.stamped(denyDecision(request, pdp_model.ReasonDegraded, now), now)
		decision.Degraded = true
		decision.SnapshotVersion = snapshot.Version
		s.auditDecision(ctx, tenantID, decision)
		return &decision, nil
	}

	if cached, err := s.cacheService.GetDecision(ctx, tenantID, snapshot.Version, request.Subject.ID, request.Subject.SessionID, request.Resource, request.Action); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		logger.Warn("Decision cache lookup failed", zap.Error(err))
	}

	decision := s.stamped(s.evaluator.Evaluate(snapshot, request, now), now)
	if err := s.cacheService.SetDecision(ctx, tenantID, &decision); err != nil {
		logger.Warn("Decision cache write failed", zap.Error(err))
	}
	s.auditDecision(ctx, tenantID, decision)
	return &decision, nil
}

// EvaluateBatch decides all requests against one snapshot. If the tenant
// version moves while the batch is in flight, the whole batch re-evaluates
// against the new snapshot rather than mixing versions.
func (s *AuthzService) EvaluateBatch(ctx context.Context, tenantID string, requests []pdp_model.AccessRequest) ([]pdp_model.Decision, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id cannot be empty", authz_errors.ErrInvalidRequest)
	}
	for i, request := range requests {
		if err := s.validationUtil.ValidateAccessRequest(request); err != nil {
			return nil, fmt.Errorf("%w: request %d: %v", authz_errors.ErrInvalidRequest, i, err)
		}
	}

	status, err := s.tenantDirectory.TenantStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	decisions := make([]pdp_model.Decision, len(requests))
	if status != TenantStatusActive {
		for i, request := range requests {
			decisions[i] = s.stamped(denyDecision(request, pdp_model.ReasonTenantInactive, now), now)
		}
		return decisions, nil
	}

	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		snapshot, fresh := s.freshSnapshot(tenantID)
		if !fresh {
			for i, request := range requests {
				decisions[i] = s.stamped(denyDecision(request, pdp_model.ReasonDegraded, now), now)
				decisions[i].Degraded = true
				decisions[i].SnapshotVersion = snapshot.Version
			}
			return decisions, nil
		}

		g, _ := errgroup.WithContext(ctx)
		for i := range requests {
			i := i
			g.Go(func() error {
				decisions[i] = s.stamped(s.evaluator.Evaluate(snapshot, requests[i], now), now)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if s.store.CurrentVersion(tenantID) == snapshot.Version || attempt == maxAttempts-1 {
			// Either the snapshot held for the whole batch, or writes keep
			// landing faster than we can evaluate; the last run is still
			// internally consistent against a single snapshot.
			for i := range decisions {
				s.auditDecision(ctx, tenantID, decisions[i])
			}
			return decisions, nil
		}
	}
	return decisions, nil
}

func denyDecision(request pdp_model.AccessRequest, reason string, now time.Time) pdp_model.Decision {
	return pdp_model.Decision{
		Subject:     request.Subject,
		Resource:    request.Resource,
		Action:      request.Action,
		Effect:      model.EffectDeny,
		Reason:      reason,
		EvaluatedAt: now,
	}
}

func (s *AuthzService) stamped(decision pdp_model.Decision, now time.Time) pdp_model.Decision {
	decision.ValidUntil = now.Add(s.decisionTTL)
	return decision
}

func (s *AuthzService) auditDecision(ctx context.Context, tenantID string, decision pdp_model.Decision) {
	details, _ := json.Marshal(map[string]interface{}{
		"matched_policy_id": decision.MatchedPolicyID,
		"snapshot_version":  decision.SnapshotVersion,
		"degraded":          decision.Degraded,
	})
	event := audit.AuditEvent{
		Timestamp:     decision.EvaluatedAt,
		EventType:     audit.EventDecision,
		TenantID:      tenantID,
		Actor:         decision.Subject.ID,
		Target:        fmt.Sprintf("%s#%s", decision.Resource, decision.Action),
		Outcome:       decision.Effect,
		Reason:        decision.Reason,
		CorrelationID: uuid.New().String(),
		Details:       details,
	}
	if err := s.auditService.LogEvent(ctx, event); err != nil {
		logger.Warn("Failed to emit decision audit event", zap.Error(err))
	}
}
