// controller/authz_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
	"github.com/tea0112/ecm-identity-service-sub001/service"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

type AuthzController struct {
	authzService service.IAuthzService
}

func NewAuthzController(authzService service.IAuthzService) *AuthzController {
	return &AuthzController{
		authzService: authzService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuthzController) RegisterRoutes(r *gin.RouterGroup) {
	authz := r.Group("/authz")
	{
		authz.POST("/check", ac.Check)
		authz.POST("/batch", ac.CheckBatch)
	}
}

// Check endpoint
func (ac *AuthzController) Check(c *gin.Context) {
	var request pdp_model.AccessRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid access request", authz_errors.ErrInvalidRequest)
		return
	}
	tenantID := util.GetTenantIDFromContext(c)

	// The authenticated identity always wins over whatever the body claims.
	request.Subject.ID = util.GetSubjectIDFromContext(c)
	request.Subject.SessionID = util.GetSessionIDFromContext(c)
	if appID := util.GetApplicationIDFromContext(c); appID != "" {
		request.Subject.ApplicationID = appID
	}

	decision, err := ac.authzService.Evaluate(c, tenantID, request)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrInvalidRequest):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid access request", err)
		case errors.Is(err, authz_errors.ErrTenantNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Tenant not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate request", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, decision)
}

// CheckBatch endpoint
func (ac *AuthzController) CheckBatch(c *gin.Context) {
	var batch pdp_model.BatchRequest
	if err := c.ShouldBindJSON(&batch); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid batch request", authz_errors.ErrInvalidRequest)
		return
	}
	tenantID := util.GetTenantIDFromContext(c)
	subjectID := util.GetSubjectIDFromContext(c)
	sessionID := util.GetSessionIDFromContext(c)
	applicationID := util.GetApplicationIDFromContext(c)
	for i := range batch.Requests {
		batch.Requests[i].Subject.ID = subjectID
		batch.Requests[i].Subject.SessionID = sessionID
		if applicationID != "" {
			batch.Requests[i].Subject.ApplicationID = applicationID
		}
	}

	decisions, err := ac.authzService.EvaluateBatch(c, tenantID, batch.Requests)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrInvalidRequest):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid batch request", err)
		case errors.Is(err, authz_errors.ErrTenantNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Tenant not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate batch", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, pdp_model.BatchDecision{Decisions: decisions})
}
