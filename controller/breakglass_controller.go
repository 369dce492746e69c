// controller/breakglass_controller.go
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

type BreakGlassController struct {
	breakGlassService service.IBreakGlassService
}

func NewBreakGlassController(breakGlassService service.IBreakGlassService) *BreakGlassController {
	return &BreakGlassController{
		breakGlassService: breakGlassService,
	}
}

// RegisterRoutes registers the API routes
func (bc *BreakGlassController) RegisterRoutes(r *gin.RouterGroup) {
	emergency := r.Group("/emergency/break-glass")
	{
		emergency.POST("/activate", bc.RequestAccess)
		emergency.GET("/:id/status", bc.Status)
	}
	admin := r.Group("/admin/break-glass")
	{
		admin.GET("", bc.List)
		admin.POST("/approve", bc.Approve)
		admin.POST("/:id/deny", bc.Deny)
		admin.POST("/:id/revoke", bc.Revoke)
	}
}

// RequestAccess endpoint
func (bc *BreakGlassController) RequestAccess(c *gin.Context) {
	var request model.BreakGlassRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid break-glass request", authz_errors.ErrInvalidBreakGlassData)
		return
	}
	request.TenantID = util.GetTenantIDFromContext(c)
	request.RequestedBy = util.GetSubjectIDFromContext(c)

	created, err := bc.breakGlassService.RequestAccess(c, request)
	if err != nil {
		if errors.Is(err, authz_errors.ErrInvalidBreakGlassData) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid break-glass request", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create break-glass request", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Approve endpoint
func (bc *BreakGlassController) Approve(c *gin.Context) {
	var body struct {
		RequestID    string `json:"request_id"`
		ApproverRole string `json:"approver_role"`
		Comment      string `json:"comment,omitempty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.RequestID == "" || body.ApproverRole == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid approval data", authz_errors.ErrInvalidBreakGlassData)
		return
	}
	tenantID := util.GetTenantIDFromContext(c)
	approverID := util.GetSubjectIDFromContext(c)

	request, err := bc.breakGlassService.Approve(c, tenantID, body.RequestID, approverID, body.ApproverRole, body.Comment)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrBreakGlassNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Break-glass request not found", err)
		case errors.Is(err, authz_errors.ErrInvalidTransition):
			util.RespondWithError(c, http.StatusConflict, "Request cannot be approved in its current state", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to approve request", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, request)
}

// Deny endpoint
func (bc *BreakGlassController) Deny(c *gin.Context) {
	requestID := c.Param("id")
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	tenantID := util.GetTenantIDFromContext(c)
	approverID := util.GetSubjectIDFromContext(c)

	request, err := bc.breakGlassService.Deny(c, tenantID, requestID, approverID, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrBreakGlassNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Break-glass request not found", err)
		case errors.Is(err, authz_errors.ErrInvalidTransition):
			util.RespondWithError(c, http.StatusConflict, "Request cannot be denied in its current state", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to deny request", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, request)
}

// Revoke endpoint
func (bc *BreakGlassController) Revoke(c *gin.Context) {
	requestID := c.Param("id")
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	tenantID := util.GetTenantIDFromContext(c)
	actor := util.GetSubjectIDFromContext(c)

	request, err := bc.breakGlassService.Revoke(c, tenantID, requestID, actor, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrBreakGlassNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Break-glass request not found", err)
		case errors.Is(err, authz_errors.ErrInvalidTransition):
			util.RespondWithError(c, http.StatusConflict, "Request is not active", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke request", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, request)
}

// List endpoint. Defaults to ACTIVE requests when no status is given.
func (bc *BreakGlassController) List(c *gin.Context) {
	tenantID := util.GetTenantIDFromContext(c)
	status := c.Query("status")
	if status == "" {
		status = model.BreakGlassStatusActive
	}

	requests, err := bc.breakGlassService.List(c, tenantID, status)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list requests", authz_errors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    len(requests),
		"requests": requests,
	})
}

// Status endpoint
func (bc *BreakGlassController) Status(c *gin.Context) {
	requestID := c.Param("id")
	tenantID := util.GetTenantIDFromContext(c)

	request, err := bc.breakGlassService.Status(c, tenantID, requestID)
	if err != nil {
		if errors.Is(err, authz_errors.ErrBreakGlassNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Break-glass request not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch request", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, request)
}
