// service/breakglass_service.go
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

// IBreakGlassService runs the emergency access workflow.
type IBreakGlassService interface {
	RequestAccess(ctx context.Context, request model.BreakGlassRequest) (model.BreakGlassRequest, error)
	Approve(ctx context.Context, tenantID, requestID, approverID, approverRole, comment string) (model.BreakGlassRequest, error)
	Deny(ctx context.Context, tenantID, requestID, approverID, reason string) (model.BreakGlassRequest, error)
	Revoke(ctx context.Context, tenantID, requestID, actor, reason string) (model.BreakGlassRequest, error)
	Status(ctx context.Context, tenantID, requestID string) (model.BreakGlassRequest, error)
	List(ctx context.Context, tenantID, status string) ([]model.BreakGlassRequest, error)
}

type BreakGlassService struct {
	store               *store.Store
	validationUtil      *util.ValidationUtil
	auditService        audit.Service
	notificationService *util.NotificationService
	lockService         *util.LockService
	defaultActivation   time.Duration
}

// NewBreakGlassService creates a new instance of BreakGlassService
func NewBreakGlassService(
	authzStore *store.Store,
	validationUtil *util.ValidationUtil,
	auditService audit.Service,
	notificationService *util.NotificationService,
	lockService *util.LockService,
	defaultActivation time.Duration,
) *BreakGlassService {
	return &BreakGlassService{
		store:               authzStore,
		validationUtil:      validationUtil,
		auditService:        auditService,
		notificationService: notificationService,
		lockService:         lockService,
		defaultActivation:   defaultActivation,
	}
}

// RequestAccess opens a new emergency access request in REQUESTED state.
func (s *BreakGlassService) RequestAccess(ctx context.Context, request model.BreakGlassRequest) (model.BreakGlassRequest, error) {
	if err := s.validationUtil.ValidateBreakGlassRequest(request); err != nil {
		return model.BreakGlassRequest{}, fmt.Errorf("%w: %v", authz_errors.ErrInvalidBreakGlassData, err)
	}

	now := time.Now()
	request.ID = uuid.New().String()
	request.Status = model.BreakGlassStatusRequested
	request.Approvals = nil
	request.CreatedAt = now
	if request.RequiredApprovalCount < 1 {
		request.RequiredApprovalCount = 1
	}
	if request.ActivationExpiry.IsZero() {
		request.ActivationExpiry = now.Add(s.defaultActivation)
	}

	version, err := s.store.SaveBreakGlass(ctx, request)
	if err != nil {
		return model.BreakGlassRequest{}, err
	}

	logger.Info("Break-glass access requested",
		zap.String("tenantId", request.TenantID),
		zap.String("requestId", request.ID),
		zap.String("requestedBy", request.RequestedBy),
		zap.String("severity", request.Severity),
		zap.Int64("version", version))

	s.auditTransition(ctx, request, request.RequestedBy, "requested", version)
	if err := s.notificationService.NotifyBreakGlass(ctx, request); err != nil {
		logger.Warn("Failed to notify break-glass request", zap.Error(err))
	}
	return request, nil
}

// Approve records one approval. Approvals are keyed by approver role, so a
// repeated approval from the same role is a no-op returning the current
// state. Reaching the required count transitions through APPROVED straight to
// ACTIVE, creating the time-boxed grant in the same visibility step. The
// store applies the whole transition under the tenant write lock; a Redis
// lock additionally serializes approvals of the same request across engine
// instances.
func (s *BreakGlassService) Approve(ctx context.Context, tenantID, requestID, approverID, approverRole, comment string) (model.BreakGlassRequest, error) {
	lockKey := fmt.Sprintf("breakglass:%s:%s", tenantID, requestID)
	locked, err := s.lockService.Acquire(ctx, lockKey, 5*time.Second)
	if err != nil {
		logger.Warn("Failed to acquire break-glass approval lock, relying on store serialization",
			zap.Error(err),
			zap.String("requestId", requestID))
	} else if !locked {
		return model.BreakGlassRequest{}, fmt.Errorf("%w: request %s approval already in progress",
			authz_errors.ErrInvalidTransition, requestID)
	} else {
		defer func() {
			if err := s.lockService.Release(ctx, lockKey); err != nil {
				logger.Warn("Failed to release break-glass approval lock", zap.Error(err))
			}
		}()
	}

	approval := model.BreakGlassApproval{
		ApproverID:   approverID,
		ApproverRole: approverRole,
		Timestamp:    time.Now(),
		Comment:      comment,
	}
	request, version, changed, err := s.store.ApproveBreakGlass(ctx, tenantID, requestID, approval, uuid.New().String())
	if err != nil {
		return model.BreakGlassRequest{}, err
	}
	if !changed {
		return request, nil
	}

	if request.Status != model.BreakGlassStatusActive {
		s.auditTransition(ctx, request, approverID, "approved", version)
		return request, nil
	}

	logger.Info("Break-glass request activated",
		zap.String("tenantId", tenantID),
		zap.String("requestId", requestID),
		zap.String("grantedAssignmentId", request.GrantedAssignmentID),
		zap.Int64("version", version))

	s.auditTransition(ctx, request, approverID, "activated", version)
	if err := s.notificationService.NotifyBreakGlass(ctx, request); err != nil {
		logger.Warn("Failed to notify break-glass activation", zap.Error(err))
	}
	return request, nil
}

// Deny refuses a request that has not yet activated. DENIED is terminal.
func (s *BreakGlassService) Deny(ctx context.Context, tenantID, requestID, approverID, reason string) (model.BreakGlassRequest, error) {
	request, version, err := s.store.DenyBreakGlass(ctx, tenantID, requestID)
	if err != nil {
		return model.BreakGlassRequest{}, err
	}

	logger.Info("Break-glass request denied",
		zap.String("tenantId", tenantID),
		zap.String("requestId", requestID),
		zap.String("deniedBy", approverID))

	s.auditTransition(ctx, request, approverID, "denied: "+reason, version)
	return request, nil
}

// Revoke terminates an ACTIVE grant before its expiry. The grant revocation
// travels the same propagation path as any other revocation.
func (s *BreakGlassService) Revoke(ctx context.Context, tenantID, requestID, actor, reason string) (model.BreakGlassRequest, error) {
	request, version, err := s.store.RevokeBreakGlass(ctx, tenantID, requestID, reason)
	if err != nil {
		return model.BreakGlassRequest{}, err
	}

	s.auditTransition(ctx, request, actor, "revoked: "+reason, version)
	return request, nil
}

// Status returns the current state of a request.
func (s *BreakGlassService) Status(ctx context.Context, tenantID, requestID string) (model.BreakGlassRequest, error) {
	return s.store.GetBreakGlass(tenantID, requestID)
}

// List returns the tenant's requests in the given status.
func (s *BreakGlassService) List(ctx context.Context, tenantID, status string) ([]model.BreakGlassRequest, error) {
	return s.store.ListBreakGlassByStatus(tenantID, status), nil
}

// StartSweeper runs the background expiry sweep until the context is
// cancelled. ACTIVE requests past their activation expiry are expired and
// their grants revoked; pending requests past expiry can no longer activate.
func (s *BreakGlassService) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Break-glass sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *BreakGlassService) sweep(ctx context.Context) {
	now := time.Now()
	for _, tenantID := range s.store.Tenants() {
		for _, request := range s.store.SweepExpiredBreakGlass(ctx, tenantID, now, "break-glass activation expired") {
			s.auditTransition(ctx, request, "system", "expired", s.store.CurrentVersion(tenantID))
		}
	}
}

func (s *BreakGlassService) auditTransition(ctx context.Context, request model.BreakGlassRequest, actor, outcome string, version int64) {
	details, _ := json.Marshal(map[string]interface{}{
		"status":           request.Status,
		"approval_count":   len(request.Approvals),
		"required":         request.RequiredApprovalCount,
		"snapshot_version": version,
	})
	event := audit.AuditEvent{
		Timestamp:     time.Now(),
		EventType:     audit.EventBreakGlassTransition,
		TenantID:      request.TenantID,
		Actor:         actor,
		Target:        request.ID,
		Outcome:       outcome,
		CorrelationID: uuid.New().String(),
		Details:       details,
	}
	if err := s.auditService.LogEvent(ctx, event); err != nil {
		logger.Warn("Failed to emit break-glass audit event", zap.Error(err))
	}
}
