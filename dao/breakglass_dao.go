// dao/breakglass_dao.go
package dao

import (
	"context"
	"encoding/json"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
)

// SaveBreakGlass upserts a break-glass request node with its full approval
// trail.
func (dao *AuthzDAO) SaveBreakGlass(ctx context.Context, request model.BreakGlassRequest) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (b:BREAK_GLASS {tenant_id: $tenant_id, id: $id})
        ON CREATE SET b += $props
        ON MATCH SET b += $props
        `
		approvalsJSON, _ := json.Marshal(request.Approvals)

		parameters := map[string]interface{}{
			"tenant_id": request.TenantID,
			"id":        request.ID,
			"props": map[string]interface{}{
				"requested_by":            request.RequestedBy,
				"target_role":             request.TargetRole,
				"scope":                   request.Scope,
				"emergency_type":          request.EmergencyType,
				"severity":                request.Severity,
				"justification":           request.Justification,
				"required_approval_count": request.RequiredApprovalCount,
				"approvals":               string(approvalsJSON),
				"status":                  request.Status,
				"activation_expiry":       request.ActivationExpiry.Format(time.RFC3339),
				"granted_assignment_id":   request.GrantedAssignmentID,
				"created_at":              request.CreatedAt.Format(time.RFC3339),
				"updated_at":              request.UpdatedAt.Format(time.RFC3339),
			},
		}
		if _, err := transaction.Run(query, parameters); err != nil {
			return nil, authz_errors.ErrDatabaseOperation
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to persist break-glass request",
			zap.Error(err),
			zap.String("requestID", request.ID))
		return err
	}

	logger.Debug("Break-glass request persisted", zap.String("requestID", request.ID))
	return nil
}
