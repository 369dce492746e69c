// controller/consent_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	"github.com/tea0112/ecm-identity-service-sub001/service"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

type ConsentController struct {
	consentService service.IConsentService
}

func NewConsentController(consentService service.IConsentService) *ConsentController {
	return &ConsentController{
		consentService: consentService,
	}
}

// RegisterRoutes registers the API routes
func (cc *ConsentController) RegisterRoutes(r *gin.RouterGroup) {
	privacy := r.Group("/privacy")
	{
		privacy.POST("/consent", cc.GrantConsent)
		privacy.POST("/consent/withdraw", cc.WithdrawConsent)
	}
}

// GrantConsent endpoint
func (cc *ConsentController) GrantConsent(c *gin.Context) {
	var consent model.ConsentGrant
	if err := c.ShouldBindJSON(&consent); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid consent data", authz_errors.ErrInvalidConsentData)
		return
	}
	consent.TenantID = util.GetTenantIDFromContext(c)
	consent.PrincipalID = util.GetSubjectIDFromContext(c)

	granted, err := cc.consentService.GrantConsent(c, consent)
	if err != nil {
		if errors.Is(err, authz_errors.ErrInvalidConsentData) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid consent data", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to record consent", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, granted)
}

// WithdrawConsent endpoint
func (cc *ConsentController) WithdrawConsent(c *gin.Context) {
	var request service.WithdrawRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid withdrawal data", authz_errors.ErrInvalidConsentData)
		return
	}
	tenantID := util.GetTenantIDFromContext(c)
	subjectID := util.GetSubjectIDFromContext(c)
	if request.ConsentID == "" && request.PrincipalID == "" {
		request.PrincipalID = subjectID
	}

	version, err := cc.consentService.WithdrawConsent(c, subjectID, tenantID, request)
	if err != nil {
		if errors.Is(err, authz_errors.ErrConsentNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Consent grant not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to withdraw consent", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"version": version})
}
