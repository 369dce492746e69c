// dao/assignment_dao.go
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
	helper_util "github.com/tea0112/ecm-identity-service-sub001/util/helper"
)

// SaveAssignment upserts a role assignment node and, for delegated grants,
// links it to its parent so cascade history is reconstructable offline.
func (dao *AuthzDAO) SaveAssignment(ctx context.Context, assignment model.RoleAssignment) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (a:ROLE_ASSIGNMENT {tenant_id: $tenant_id, id: $id})
        ON CREATE SET a += $props
        ON MATCH SET a += $props
        `
		restrictionsJSON, _ := json.Marshal(assignment.Restrictions)

		parameters := map[string]interface{}{
			"tenant_id": assignment.TenantID,
			"id":        assignment.ID,
			"props": map[string]interface{}{
				"principal_id":         assignment.PrincipalID,
				"role_name":            assignment.RoleName,
				"scope":                assignment.Scope,
				"type":                 assignment.Type,
				"status":               assignment.Status,
				"justification":        assignment.Justification,
				"delegation_depth":     assignment.DelegationDepth,
				"max_delegation_depth": assignment.MaxDelegationDepth,
				"restrictions":         string(restrictionsJSON),
				"approval_required":    assignment.ApprovalRequired,
				"parent_assignment_id": assignment.ParentAssignmentID,
				"expires_at":           helper_util.FormatNullableTime(assignment.ExpiresAt),
				"created_at":           assignment.CreatedAt.Format(time.RFC3339),
				"updated_at":           assignment.UpdatedAt.Format(time.RFC3339),
			},
		}
		if _, err := transaction.Run(query, parameters); err != nil {
			return nil, authz_errors.ErrDatabaseOperation
		}

		if assignment.ParentAssignmentID != "" {
			linkQuery := `
            MATCH (child:ROLE_ASSIGNMENT {tenant_id: $tenant_id, id: $id})
            MATCH (parent:ROLE_ASSIGNMENT {tenant_id: $tenant_id, id: $parent_id})
            MERGE (child)-[:DELEGATED_FROM]->(parent)
            `
			if _, err := transaction.Run(linkQuery, map[string]interface{}{
				"tenant_id": assignment.TenantID,
				"id":        assignment.ID,
				"parent_id": assignment.ParentAssignmentID,
			}); err != nil {
				return nil, authz_errors.ErrDatabaseOperation
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to persist role assignment",
			zap.Error(err),
			zap.String("assignmentID", assignment.ID))
		return err
	}

	logger.Debug("Role assignment persisted", zap.String("assignmentID", assignment.ID))
	return nil
}

// SaveRevocationMark persists an invalidated-since watermark. Marks are
// write-once: a repeated save of the same target is a no-op.
func (dao *AuthzDAO) SaveRevocationMark(ctx context.Context, mark model.RevocationMark) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (r:REVOCATION_MARK {target_type: $target_type, target_id: $target_id})
        ON CREATE SET r.effective_since = $effective_since, r.reason = $reason, r.version = $version
        `
		parameters := map[string]interface{}{
			"target_type":     mark.TargetType,
			"target_id":       mark.TargetID,
			"effective_since": mark.EffectiveSince.Format(time.RFC3339Nano),
			"reason":          mark.Reason,
			"version":         mark.Version,
		}
		if _, err := transaction.Run(query, parameters); err != nil {
			return nil, authz_errors.ErrDatabaseOperation
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to persist revocation mark",
			zap.Error(err),
			zap.String("targetType", mark.TargetType),
			zap.String("targetID", mark.TargetID))
		return err
	}

	logger.Debug("Revocation mark persisted",
		zap.String("targetType", mark.TargetType),
		zap.String("targetID", mark.TargetID))
	return nil
}
