// controller/controllers.go
package controller

import "github.com/tea0112/ecm-identity-service-sub001/service"

type Controllers struct {
	Authz      *AuthzController
	Delegation *DelegationController
	BreakGlass *BreakGlassController
	Consent    *ConsentController
	Admin      *AdminController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Authz:      NewAuthzController(services.Authz),
		Delegation: NewDelegationController(services.Delegation),
		BreakGlass: NewBreakGlassController(services.BreakGlass),
		Consent:    NewConsentController(services.Consent),
		Admin:      NewAdminController(services.Policy, services.Revocation, services.Audit),
	}
}
