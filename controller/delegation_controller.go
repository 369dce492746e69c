// controller/delegation_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	"github.com/tea0112/ecm-identity-service-sub001/service"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

type DelegationController struct {
	delegationService service.IDelegationService
}

func NewDelegationController(delegationService service.IDelegationService) *DelegationController {
	return &DelegationController{
		delegationService: delegationService,
	}
}

// RegisterRoutes registers the API routes
func (dc *DelegationController) RegisterRoutes(r *gin.RouterGroup) {
	authz := r.Group("/authz")
	{
		authz.POST("/delegate", dc.Delegate)
		authz.POST("/delegate/:id/revoke", dc.RevokeDelegation)
		authz.GET("/delegate/:id", dc.GetDelegation)
	}
}

// Delegate endpoint
func (dc *DelegationController) Delegate(c *gin.Context) {
	var request service.DelegationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid delegation data", authz_errors.ErrInvalidDelegationData)
		return
	}
	tenantID := util.GetTenantIDFromContext(c)
	subjectID := util.GetSubjectIDFromContext(c)

	assignment, err := dc.delegationService.Delegate(c, tenantID, subjectID, request)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrInvalidDelegationData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid delegation data", err)
		case errors.Is(err, authz_errors.ErrAssignmentNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Parent assignment not found", err)
		case errors.Is(err, authz_errors.ErrAssignmentRevoked):
			util.RespondWithError(c, http.StatusConflict, "Parent assignment is not usable", err)
		case errors.Is(err, authz_errors.ErrDelegationDepthExceeded):
			util.RespondWithError(c, http.StatusConflict, "Delegation depth exceeded", err)
		case errors.Is(err, authz_errors.ErrUnauthorized):
			util.RespondWithError(c, http.StatusForbidden, "Assignment not held by caller", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create delegation", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// RevokeDelegation endpoint
func (dc *DelegationController) RevokeDelegation(c *gin.Context) {
	assignmentID := c.Param("id")
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	tenantID := util.GetTenantIDFromContext(c)
	subjectID := util.GetSubjectIDFromContext(c)

	revoked, version, err := dc.delegationService.RevokeDelegation(c, subjectID, tenantID, assignmentID, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrAssignmentNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Assignment not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke delegation", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"revoked_assignments": revoked,
		"version":             version,
	})
}

// GetDelegation endpoint
func (dc *DelegationController) GetDelegation(c *gin.Context) {
	assignmentID := c.Param("id")
	tenantID := util.GetTenantIDFromContext(c)

	assignment, err := dc.delegationService.GetAssignment(c, tenantID, assignmentID)
	if err != nil {
		if errors.Is(err, authz_errors.ErrAssignmentNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Assignment not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch assignment", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, assignment)
}
