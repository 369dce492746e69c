// service/consent_service.go
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

// WithdrawRequest identifies a consent grant either by id or by the
// (principal, application, resource) tuple it was granted for.
type WithdrawRequest struct {
	ConsentID       string `json:"consent_id,omitempty"`
	PrincipalID     string `json:"principal_id,omitempty"`
	ApplicationID   string `json:"application_id,omitempty"`
	ResourcePattern string `json:"resource_pattern,omitempty"`
}

// IConsentService manages consent grants and withdrawals.
type IConsentService interface {
	GrantConsent(ctx context.Context, consent model.ConsentGrant) (model.ConsentGrant, error)
	WithdrawConsent(ctx context.Context, actor, tenantID string, request WithdrawRequest) (int64, error)
}

type ConsentService struct {
	store          *store.Store
	validationUtil *util.ValidationUtil
	auditService   audit.Service
}

// NewConsentService creates a new instance of ConsentService
func NewConsentService(
	authzStore *store.Store,
	validationUtil *util.ValidationUtil,
	auditService audit.Service,
) *ConsentService {
	return &ConsentService{
		store:          authzStore,
		validationUtil: validationUtil,
		auditService:   auditService,
	}
}

// GrantConsent records a consent grant.
func (s *ConsentService) GrantConsent(ctx context.Context, consent model.ConsentGrant) (model.ConsentGrant, error) {
	if err := s.validationUtil.ValidateConsent(consent); err != nil {
		return model.ConsentGrant{}, fmt.Errorf("%w: %v", authz_errors.ErrInvalidConsentData, err)
	}
	if consent.ID == "" {
		consent.ID = uuid.New().String()
	}

	saved, version, err := s.store.PutConsent(ctx, consent)
	if err != nil {
		return model.ConsentGrant{}, err
	}

	logger.Info("Consent granted",
		zap.String("tenantId", saved.TenantID),
		zap.String("consentId", saved.ID),
		zap.String("principalId", saved.PrincipalID),
		zap.Int64("version", version))

	s.auditConsent(ctx, audit.EventConsentGranted, saved.PrincipalID, saved, version)
	return saved, nil
}

// WithdrawConsent withdraws a grant. Withdrawal takes effect at the next
// snapshot and is idempotent.
func (s *ConsentService) WithdrawConsent(ctx context.Context, actor, tenantID string, request WithdrawRequest) (int64, error) {
	consentID := request.ConsentID
	if consentID == "" {
		consent, err := s.store.FindConsent(tenantID, request.PrincipalID, request.ApplicationID, request.ResourcePattern)
		if err != nil {
			return 0, err
		}
		consentID = consent.ID
	}

	version, err := s.store.WithdrawConsent(ctx, tenantID, consentID)
	if err != nil {
		return 0, err
	}

	logger.Info("Consent withdrawn",
		zap.String("tenantId", tenantID),
		zap.String("consentId", consentID),
		zap.Int64("version", version))

	consent, err := s.store.GetConsent(tenantID, consentID)
	if err == nil {
		s.auditConsent(ctx, audit.EventConsentWithdrawn, actor, consent, version)
	}
	return version, nil
}

func (s *ConsentService) auditConsent(ctx context.Context, eventType, actor string, consent model.ConsentGrant, version int64) {
	details, _ := json.Marshal(map[string]interface{}{
		"application_id":   consent.ApplicationID,
		"resource_pattern": consent.ResourcePattern,
		"purpose":          consent.Purpose,
		"snapshot_version": version,
	})
	event := audit.AuditEvent{
		Timestamp:     time.Now(),
		EventType:     eventType,
		TenantID:      consent.TenantID,
		Actor:         actor,
		Target:        consent.ID,
		Outcome:       "success",
		CorrelationID: uuid.New().String(),
		Details:       details,
	}
	if err := s.auditService.LogEvent(ctx, event); err != nil {
		logger.Warn("Failed to emit consent audit event", zap.Error(err))
	}
}
