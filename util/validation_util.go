// util/validation_util.go

package util

import (
	"fmt"

	"github.com/tea0112/ecm-identity-service-sub001/model"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateAccessRequest(request pdp_model.AccessRequest) error {
	if request.Subject.ID == "" {
		return fmt.Errorf("request subject cannot be empty")
	}
	if request.Resource == "" {
		return fmt.Errorf("request resource cannot be empty")
	}
	if request.Action == "" {
		return fmt.Errorf("request action cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidatePolicy(policy model.Policy) error {
	if policy.Name == "" {
		return fmt.Errorf("policy name cannot be empty")
	}
	if policy.Effect != model.EffectAllow && policy.Effect != model.EffectDeny {
		return fmt.Errorf("policy effect must be either 'allow' or 'deny'")
	}
	if policy.Priority < 0 {
		return fmt.Errorf("policy priority cannot be negative")
	}
	if len(policy.Subjects) == 0 {
		return fmt.Errorf("policy must have at least one subject matcher")
	}
	if len(policy.Resources) == 0 {
		return fmt.Errorf("policy must have at least one resource matcher")
	}
	if len(policy.Actions) == 0 {
		return fmt.Errorf("policy must have at least one action matcher")
	}
	return nil
}

func (v *ValidationUtil) ValidateDelegation(fromPrincipal, toPrincipal, assignmentID string) error {
	if fromPrincipal == "" {
		return fmt.Errorf("delegator principal cannot be empty")
	}
	if toPrincipal == "" {
		return fmt.Errorf("delegate principal cannot be empty")
	}
	if fromPrincipal == toPrincipal {
		return fmt.Errorf("cannot delegate to oneself")
	}
	if assignmentID == "" {
		return fmt.Errorf("role assignment id cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateBreakGlassRequest(request model.BreakGlassRequest) error {
	if request.RequestedBy == "" {
		return fmt.Errorf("break-glass requester cannot be empty")
	}
	if request.TargetRole == "" {
		return fmt.Errorf("break-glass target role cannot be empty")
	}
	if request.EmergencyType == "" {
		return fmt.Errorf("break-glass emergency type cannot be empty")
	}
	if request.RequiredApprovalCount < 1 {
		return fmt.Errorf("break-glass request must require at least one approval")
	}
	return nil
}

func (v *ValidationUtil) ValidateConsent(consent model.ConsentGrant) error {
	if consent.PrincipalID == "" {
		return fmt.Errorf("consent principal cannot be empty")
	}
	if consent.ApplicationID == "" {
		return fmt.Errorf("consent application cannot be empty")
	}
	if consent.ResourcePattern == "" {
		return fmt.Errorf("consent resource pattern cannot be empty")
	}
	if len(consent.Actions) == 0 {
		return fmt.Errorf("consent must cover at least one action")
	}
	return nil
}
