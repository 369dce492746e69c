// service/revocation_service.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tea0112/ecm-identity-service-sub001/audit"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/store"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

// IRevocationService manages revocation marks and mass revocation.
type IRevocationService interface {
	Revoke(ctx context.Context, actor, tenantID, targetType, targetID, reason string) (int64, error)
	MassRevoke(ctx context.Context, actor, tenantID, principalID, reason string) ([]string, int64, error)
	CurrentVersion(tenantID string) int64
}

type RevocationService struct {
	store               *store.Store
	auditService        audit.Service
	notificationService *util.NotificationService
}

// NewRevocationService creates a new instance of RevocationService
func NewRevocationService(
	authzStore *store.Store,
	auditService audit.Service,
	notificationService *util.NotificationService,
) *RevocationService {
	return &RevocationService{
		store:               authzStore,
		auditService:        auditService,
		notificationService: notificationService,
	}
}

// Revoke places a revocation mark on a user, session, or role assignment.
// Revoking an already revoked target returns the existing mark's version.
func (s *RevocationService) Revoke(ctx context.Context, actor, tenantID, targetType, targetID, reason string) (int64, error) {
	version, err := s.store.Revoke(ctx, tenantID, targetType, targetID, reason)
	if err != nil {
		return 0, err
	}

	logger.Info("Revocation committed",
		zap.String("tenantId", tenantID),
		zap.String("targetType", targetType),
		zap.String("targetId", targetID),
		zap.Int64("version", version))

	s.auditRevocation(ctx, audit.EventRevocation, actor, tenantID, targetType, targetID, reason, version, nil)
	return version, nil
}

// MassRevoke revokes a compromised principal: a user mark plus every role
// assignment the principal holds, including full delegation chains, all
// visible in a single version step.
func (s *RevocationService) MassRevoke(ctx context.Context, actor, tenantID, principalID, reason string) ([]string, int64, error) {
	revoked, version, err := s.store.MassRevoke(ctx, tenantID, principalID, reason)
	if err != nil {
		return nil, 0, err
	}

	logger.Info("Mass revocation committed",
		zap.String("tenantId", tenantID),
		zap.String("principalId", principalID),
		zap.Int("assignmentCount", len(revoked)),
		zap.Int64("version", version))

	s.auditRevocation(ctx, audit.EventMassRevocation, actor, tenantID, "user", principalID, reason, version, revoked)
	if err := s.notificationService.NotifyMassRevocation(ctx, tenantID, principalID, reason); err != nil {
		logger.Warn("Failed to notify mass revocation", zap.Error(err))
	}
	return revoked, version, nil
}

// CurrentVersion exposes the tenant's committed version for propagation
// verification.
func (s *RevocationService) CurrentVersion(tenantID string) int64 {
	return s.store.CurrentVersion(tenantID)
}

func (s *RevocationService) auditRevocation(ctx context.Context, eventType, actor, tenantID, targetType, targetID, reason string, version int64, revokedAssignments []string) {
	details, _ := json.Marshal(map[string]interface{}{
		"target_type":         targetType,
		"snapshot_version":    version,
		"revoked_assignments": revokedAssignments,
	})
	event := audit.AuditEvent{
		Timestamp:     time.Now(),
		EventType:     eventType,
		TenantID:      tenantID,
		Actor:         actor,
		Target:        targetID,
		Outcome:       "success",
		Reason:        reason,
		CorrelationID: uuid.New().String(),
		Details:       details,
	}
	if err := s.auditService.LogEvent(ctx, event); err != nil {
		logger.Warn("Failed to emit revocation audit event", zap.Error(err))
	}
}
