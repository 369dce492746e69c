// service/delegation_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tea0112/ecm-identity-service-sub001/audit"
	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	"github.com/tea0112/ecm-identity-service-sub001/store"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

// DelegationRequest carries the parameters of a delegation.
type DelegationRequest struct {
	ParentAssignmentID string               `json:"parent_assignment_id"`
	ToPrincipalID      string               `json:"to_principal_id"`
	ExpiresAt          *time.Time           `json:"expires_at,omitempty"`
	Justification      string               `json:"justification,omitempty"`
	Restrictions       model.RestrictionSet `json:"restrictions"`
}

// IDelegationService manages delegated role assignments.
type IDelegationService interface {
	Delegate(ctx context.Context, tenantID, fromPrincipalID string, request DelegationRequest) (model.RoleAssignment, error)
	RevokeDelegation(ctx context.Context, actor, tenantID, assignmentID, reason string) ([]string, int64, error)
	GetAssignment(ctx context.Context, tenantID, assignmentID string) (model.RoleAssignment, error)
}

type DelegationService struct {
	store          *store.Store
	validationUtil *util.ValidationUtil
	auditService   audit.Service
}

// NewDelegationService creates a new instance of DelegationService
func NewDelegationService(
	authzStore *store.Store,
	validationUtil *util.ValidationUtil,
	auditService audit.Service,
) *DelegationService {
	return &DelegationService{
		store:          authzStore,
		validationUtil: validationUtil,
		auditService:   auditService,
	}
}

// Delegate creates a delegated assignment under a parent the delegator holds.
// The child is always at least as narrow as the parent: restrictions are
// intersected along the whole chain, expiry is clamped to the parent's, and
// depth is bounded by the root assignment's max delegation depth.
func (s *DelegationService) Delegate(ctx context.Context, tenantID, fromPrincipalID string, request DelegationRequest) (model.RoleAssignment, error) {
	if err := s.validationUtil.ValidateDelegation(fromPrincipalID, request.ToPrincipalID, request.ParentAssignmentID); err != nil {
		return model.RoleAssignment{}, fmt.Errorf("%w: %v", authz_errors.ErrInvalidDelegationData, err)
	}

	parent, err := s.store.GetAssignment(tenantID, request.ParentAssignmentID)
	if err != nil {
		return model.RoleAssignment{}, err
	}
	if parent.PrincipalID != fromPrincipalID {
		return model.RoleAssignment{}, fmt.Errorf("%w: assignment %s is not held by %s",
			authz_errors.ErrUnauthorized, request.ParentAssignmentID, fromPrincipalID)
	}

	now := time.Now()
	if !parent.Usable(now) {
		return model.RoleAssignment{}, fmt.Errorf("%w: %s", authz_errors.ErrAssignmentRevoked, parent.ID)
	}

	root, restrictions, expiry, err := s.walkChain(tenantID, parent, now)
	if err != nil {
		return model.RoleAssignment{}, err
	}

	depth := parent.DelegationDepth + 1
	if depth > root.MaxDelegationDepth {
		return model.RoleAssignment{}, fmt.Errorf("%w: depth %d exceeds max %d",
			authz_errors.ErrDelegationDepthExceeded, depth, root.MaxDelegationDepth)
	}

	restrictions = restrictions.Intersect(request.Restrictions)
	if request.ExpiresAt != nil && (expiry == nil || request.ExpiresAt.Before(*expiry)) {
		expiry = request.ExpiresAt
	}

	assignment := model.RoleAssignment{
		ID:                 uuid.New().String(),
		TenantID:           tenantID,
		PrincipalID:        request.ToPrincipalID,
		RoleName:           parent.RoleName,
		Scope:              parent.Scope,
		Type:               model.AssignmentTypeDelegated,
		Status:             model.AssignmentStatusActive,
		ExpiresAt:          expiry,
		Justification:      request.Justification,
		DelegationDepth:    depth,
		MaxDelegationDepth: root.MaxDelegationDepth,
		Restrictions:       restrictions,
		ParentAssignmentID: parent.ID,
	}

	saved, version, err := s.store.CreateAssignment(ctx, assignment)
	if err != nil {
		return model.RoleAssignment{}, err
	}

	logger.Info("Delegation created",
		zap.String("tenantId", tenantID),
		zap.String("assignmentId", saved.ID),
		zap.String("fromPrincipal", fromPrincipalID),
		zap.String("toPrincipal", request.ToPrincipalID),
		zap.Int("depth", depth),
		zap.Int64("version", version))

	s.auditDelegation(ctx, audit.EventDelegationCreated, fromPrincipalID, saved, version, "")
	return saved, nil
}

// RevokeDelegation revokes an assignment and the entire delegation subtree
// under it in one atomic visibility step.
func (s *DelegationService) RevokeDelegation(ctx context.Context, actor, tenantID, assignmentID, reason string) ([]string, int64, error) {
	revoked, version, err := s.store.RevokeAssignmentCascade(ctx, tenantID, assignmentID, reason)
	if err != nil {
		return nil, 0, err
	}

	logger.Info("Delegation revoked",
		zap.String("tenantId", tenantID),
		zap.String("assignmentId", assignmentID),
		zap.Int("cascadeCount", len(revoked)),
		zap.Int64("version", version))

	for _, id := range revoked {
		assignment, err := s.store.GetAssignment(tenantID, id)
		if err != nil {
			continue
		}
		s.auditDelegation(ctx, audit.EventDelegationRevoked, actor, assignment, version, reason)
	}
	return revoked, version, nil
}

// GetAssignment returns an assignment by id.
func (s *DelegationService) GetAssignment(ctx context.Context, tenantID, assignmentID string) (model.RoleAssignment, error) {
	return s.store.GetAssignment(tenantID, assignmentID)
}

// walkChain walks from parent up to the root assignment, accumulating the
// intersected restrictions and the tightest expiry. Any unusable ancestor
// invalidates the delegation.
func (s *DelegationService) walkChain(tenantID string, parent model.RoleAssignment, now time.Time) (model.RoleAssignment, model.RestrictionSet, *time.Time, error) {
	restrictions := parent.Restrictions
	expiry := parent.ExpiresAt
	current := parent
	for hops := 0; current.ParentAssignmentID != ""; hops++ {
		if hops > 64 {
			return model.RoleAssignment{}, model.RestrictionSet{}, nil,
				fmt.Errorf("%w: delegation chain too long", authz_errors.ErrInvalidDelegationData)
		}
		ancestor, err := s.store.GetAssignment(tenantID, current.ParentAssignmentID)
		if err != nil {
			return model.RoleAssignment{}, model.RestrictionSet{}, nil, err
		}
		if !ancestor.Usable(now) {
			return model.RoleAssignment{}, model.RestrictionSet{}, nil,
				fmt.Errorf("%w: ancestor %s", authz_errors.ErrAssignmentRevoked, ancestor.ID)
		}
		restrictions = restrictions.Intersect(ancestor.Restrictions)
		if ancestor.ExpiresAt != nil && (expiry == nil || ancestor.ExpiresAt.Before(*expiry)) {
			expiry = ancestor.ExpiresAt
		}
		current = ancestor
	}
	return current, restrictions, expiry, nil
}

func (s *DelegationService) auditDelegation(ctx context.Context, eventType, actor string, assignment model.RoleAssignment, version int64, reason string) {
	details, _ := json.Marshal(map[string]interface{}{
		"principal_id":     assignment.PrincipalID,
		"role_name":        assignment.RoleName,
		"delegation_depth": assignment.DelegationDepth,
		"snapshot_version": version,
	})
	event := audit.AuditEvent{
		Timestamp:     time.Now(),
		EventType:     eventType,
		TenantID:      assignment.TenantID,
		Actor:         actor,
		Target:        assignment.ID,
		Outcome:       "success",
		Reason:        reason,
		CorrelationID: uuid.New().String(),
		Details:       details,
	}
	if err := s.auditService.LogEvent(ctx, event); err != nil {
		logger.Warn("Failed to emit delegation audit event", zap.Error(err))
	}
}
