// service/policy_service.go
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

// IPolicyService manages the versioned policy lifecycle.
type IPolicyService interface {
	CreateOrUpdatePolicy(ctx context.Context, actor string, policy model.Policy) (model.Policy, error)
	RollbackPolicy(ctx context.Context, actor, tenantID, policyID string) (model.Policy, error)
	GetPolicy(ctx context.Context, tenantID, policyID string) (model.Policy, error)
	SearchPolicies(ctx context.Context, tenantID string, criteria model.PolicySearchCriteria) ([]model.Policy, error)
}

type PolicyService struct {
	store               *store.Store
	validationUtil      *util.ValidationUtil
	auditService        audit.Service
	notificationService *util.NotificationService
}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(
	authzStore *store.Store,
	validationUtil *util.ValidationUtil,
	auditService audit.Service,
	notificationService *util.NotificationService,
) *PolicyService {
	return &PolicyService{
		store:               authzStore,
		validationUtil:      validationUtil,
		auditService:        auditService,
		notificationService: notificationService,
	}
}

// CreateOrUpdatePolicy writes a new policy version. A policy with no ID is a
// create; one with an ID appends the next version of that policy.
func (s *PolicyService) CreateOrUpdatePolicy(ctx context.Context, actor string, policy model.Policy) (model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return model.Policy{}, fmt.Errorf("%w: %v", authz_errors.ErrInvalidPolicyData, err)
	}

	changeType := "updated"
	if policy.ID == "" {
		policy.ID = uuid.New().String()
		changeType = "created"
	}

	saved, version, err := s.store.PutPolicy(ctx, policy)
	if err != nil {
		return model.Policy{}, err
	}

	logger.Info("Policy change committed",
		zap.String("tenantId", saved.TenantID),
		zap.String("policyId", saved.ID),
		zap.Int("policyVersion", saved.Version),
		zap.Int64("version", version))

	s.auditPolicy(ctx, audit.EventPolicyChange, actor, saved, version, changeType)
	if err := s.notificationService.NotifyPolicyChange(ctx, changeType, saved); err != nil {
		logger.Warn("Failed to notify policy change", zap.Error(err))
	}
	return saved, nil
}

// RollbackPolicy restores the previous version of a policy as a new version.
func (s *PolicyService) RollbackPolicy(ctx context.Context, actor, tenantID, policyID string) (model.Policy, error) {
	restored, version, err := s.store.RollbackPolicy(ctx, tenantID, policyID)
	if err != nil {
		return model.Policy{}, err
	}

	logger.Info("Policy rolled back",
		zap.String("tenantId", tenantID),
		zap.String("policyId", policyID),
		zap.Int("restoredVersion", restored.Version),
		zap.Int64("version", version))

	s.auditPolicy(ctx, audit.EventPolicyRollback, actor, restored, version, "rolled_back")
	if err := s.notificationService.NotifyPolicyChange(ctx, "rolled_back", restored); err != nil {
		logger.Warn("Failed to notify policy rollback", zap.Error(err))
	}
	return restored, nil
}

// GetPolicy returns the current version of a policy.
func (s *PolicyService) GetPolicy(ctx context.Context, tenantID, policyID string) (model.Policy, error) {
	return s.store.GetPolicy(tenantID, policyID)
}

// SearchPolicies lists the latest version of every policy matching the
// criteria.
func (s *PolicyService) SearchPolicies(ctx context.Context, tenantID string, criteria model.PolicySearchCriteria) ([]model.Policy, error) {
	return s.store.SearchPolicies(tenantID, criteria), nil
}

func (s *PolicyService) auditPolicy(ctx context.Context, eventType, actor string, policy model.Policy, version int64, changeType string) {
	details, _ := json.Marshal(map[string]interface{}{
		"change_type":      changeType,
		"policy_version":   policy.Version,
		"snapshot_version": version,
	})
	event := audit.AuditEvent{
		Timestamp:     time.Now(),
		EventType:     eventType,
		TenantID:      policy.TenantID,
		Actor:         actor,
		Target:        policy.ID,
		Outcome:       "success",
		CorrelationID: uuid.New().String(),
		Details:       details,
	}
	if err := s.auditService.LogEvent(ctx, event); err != nil {
		logger.Warn("Failed to emit policy audit event", zap.Error(err))
	}
}
