// service/services.go
package service

import (
	"time"

	"github.com/tea0112/ecm-identity-service-sub001/audit"
	"github.com/tea0112/ecm-identity-service-sub001/propagation"
	"github.com/tea0112/ecm-identity-service-sub001/store"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

type Services struct {
	Authz      IAuthzService
	Policy     IPolicyService
	Delegation IDelegationService
	Revocation IRevocationService
	Consent    IConsentService
	BreakGlass IBreakGlassService
	Audit      audit.Service
}

// Config carries the operational bounds the services enforce.
type Config struct {
	PropagationSLA              time.Duration
	DecisionTTL                 time.Duration
	BreakGlassDefaultActivation time.Duration
}

func InitializeServices(
	authzStore *store.Store,
	tenantDirectory TenantDirectory,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	lockService *util.LockService,
	bus *propagation.Bus,
	remote propagation.Subscriber,
	cfg Config,
) (*Services, error) {
	services := &Services{
		Authz:      NewAuthzService(authzStore, tenantDirectory, validationUtil, cacheService, auditService, bus, remote, cfg.PropagationSLA, cfg.DecisionTTL),
		Policy:     NewPolicyService(authzStore, validationUtil, auditService, notificationSvc),
		Delegation: NewDelegationService(authzStore, validationUtil, auditService),
		Revocation: NewRevocationService(authzStore, auditService, notificationSvc),
		Consent:    NewConsentService(authzStore, validationUtil, auditService),
		BreakGlass: NewBreakGlassService(authzStore, validationUtil, auditService, notificationSvc, lockService, cfg.BreakGlassDefaultActivation),
		Audit:      auditService,
	}
	return services, nil
}
