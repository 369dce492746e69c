// controller/admin_controller.go
package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tea0112/ecm-identity-service-sub001/audit"
	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	"github.com/tea0112/ecm-identity-service-sub001/service"
	"github.com/tea0112/ecm-identity-service-sub001/util"
	helper_util "github.com/tea0112/ecm-identity-service-sub001/util/helper"
)

// AdminController exposes policy lifecycle, security revocation and audit
// query surfaces.
type AdminController struct {
	policyService     service.IPolicyService
	revocationService service.IRevocationService
	auditService      audit.Service
}

func NewAdminController(policyService service.IPolicyService, revocationService service.IRevocationService, auditService audit.Service) *AdminController {
	return &AdminController{
		policyService:     policyService,
		revocationService: revocationService,
		auditService:      auditService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AdminController) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.POST("/policies", ac.PutPolicy)
		admin.GET("/policies", ac.SearchPolicies)
		admin.GET("/policies/:id", ac.GetPolicy)
		admin.POST("/policies/:id/rollback", ac.RollbackPolicy)
		admin.POST("/security/revoke", ac.Revoke)
		admin.POST("/security/mass-revocation", ac.MassRevoke)
		admin.GET("/audit/events", ac.QueryAuditEvents)
	}
}

// PutPolicy endpoint
func (ac *AdminController) PutPolicy(c *gin.Context) {
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", authz_errors.ErrInvalidPolicyData)
		return
	}
	policy.TenantID = util.GetTenantIDFromContext(c)
	actor := util.GetSubjectIDFromContext(c)

	saved, err := ac.policyService.CreateOrUpdatePolicy(c, actor, policy)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, authz_errors.ErrPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy conflict", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to save policy", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// SearchPolicies endpoint. Filters apply to the latest version of each
// policy.
func (ac *AdminController) SearchPolicies(c *gin.Context) {
	tenantID := util.GetTenantIDFromContext(c)

	criteria := model.PolicySearchCriteria{
		Name:   c.Query("name"),
		Effect: c.Query("effect"),
		Status: c.Query("status"),
	}
	var err error
	if raw := c.Query("min_priority"); raw != "" {
		if criteria.MinPriority, err = strconv.Atoi(raw); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid min_priority", authz_errors.ErrInvalidRequest)
			return
		}
	}
	if raw := c.Query("max_priority"); raw != "" {
		if criteria.MaxPriority, err = strconv.Atoi(raw); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid max_priority", authz_errors.ErrInvalidRequest)
			return
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if criteria.Limit, err = strconv.Atoi(raw); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid limit", authz_errors.ErrInvalidRequest)
			return
		}
	}

	policies, err := ac.policyService.SearchPolicies(c, tenantID, criteria)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to search policies", authz_errors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    len(policies),
		"policies": policies,
	})
}

// GetPolicy endpoint
func (ac *AdminController) GetPolicy(c *gin.Context) {
	policyID := c.Param("id")
	tenantID := util.GetTenantIDFromContext(c)

	policy, err := ac.policyService.GetPolicy(c, tenantID, policyID)
	if err != nil {
		if errors.Is(err, authz_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch policy", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, policy)
}

// RollbackPolicy endpoint
func (ac *AdminController) RollbackPolicy(c *gin.Context) {
	policyID := c.Param("id")
	tenantID := util.GetTenantIDFromContext(c)
	actor := util.GetSubjectIDFromContext(c)

	restored, err := ac.policyService.RollbackPolicy(c, actor, tenantID, policyID)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		case errors.Is(err, authz_errors.ErrNoPreviousVersion):
			util.RespondWithError(c, http.StatusConflict, "No previous version to roll back to", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to roll back policy", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, restored)
}

// Revoke endpoint
func (ac *AdminController) Revoke(c *gin.Context) {
	var body struct {
		TargetType string `json:"target_type"`
		TargetID   string `json:"target_id"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.TargetType == "" || body.TargetID == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid revocation data", authz_errors.ErrInvalidRequest)
		return
	}
	tenantID := util.GetTenantIDFromContext(c)
	actor := util.GetSubjectIDFromContext(c)

	version, err := ac.revocationService.Revoke(c, actor, tenantID, body.TargetType, body.TargetID, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrRevocationTargetUnknown):
			util.RespondWithError(c, http.StatusBadRequest, "Unknown revocation target type", err)
		case errors.Is(err, authz_errors.ErrAssignmentNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Assignment not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke", authz_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"version": version})
}

// MassRevoke endpoint
func (ac *AdminController) MassRevoke(c *gin.Context) {
	var body struct {
		PrincipalID string `json:"principal_id"`
		Reason      string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PrincipalID == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid mass revocation data", authz_errors.ErrInvalidRequest)
		return
	}
	tenantID := util.GetTenantIDFromContext(c)
	actor := util.GetSubjectIDFromContext(c)

	// Returns only after the new version is durably recorded; propagation
	// continues asynchronously within the SLA.
	revoked, version, err := ac.revocationService.MassRevoke(c, actor, tenantID, body.PrincipalID, body.Reason)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to mass revoke", authz_errors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"principal_id":        body.PrincipalID,
		"revoked_assignments": revoked,
		"version":             version,
	})
}

// QueryAuditEvents endpoint. Defaults to the last 24 hours when no window
// is given.
func (ac *AdminController) QueryAuditEvents(c *gin.Context) {
	tenantID := util.GetTenantIDFromContext(c)
	actor := c.Query("actor")

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = helper_util.ParseTime(raw); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid from timestamp", authz_errors.ErrInvalidRequest)
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = helper_util.ParseTime(raw); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid to timestamp", authz_errors.ErrInvalidRequest)
			return
		}
	}
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", authz_errors.ErrInvalidRequest)
		return
	}

	events, err := ac.auditService.QueryEvents(c, from, to, tenantID, actor)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit events", authz_errors.ErrInternalServer)
		return
	}

	if offset > len(events) {
		offset = len(events)
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  len(events),
		"events": events[offset:end],
	})
}
