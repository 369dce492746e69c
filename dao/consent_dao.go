// dao/consent_dao.go
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

// SaveConsent upserts a consent grant node. Withdrawal is recorded by
// setting withdrawn_at; the node is never deleted.
func (dao *AuthzDAO) SaveConsent(ctx context.Context, consent model.ConsentGrant) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (c:CONSENT {tenant_id: $tenant_id, id: $id})
        ON CREATE SET c += $props
        ON MATCH SET c.withdrawn_at = $props.withdrawn_at
        `
		actionsJSON, _ := json.Marshal(consent.Actions)

		parameters := map[string]interface{}{
			"tenant_id": consent.TenantID,
			"id":        consent.ID,
			"props": map[string]interface{}{
				"principal_id":     consent.PrincipalID,
				"application_id":   consent.ApplicationID,
				"resource_pattern": consent.ResourcePattern,
				"actions":          string(actionsJSON),
				"purpose":          consent.Purpose,
				"granted_at":       consent.GrantedAt.Format(time.RFC3339),
				"withdrawn_at":     helper_util.FormatNullableTime(consent.WithdrawnAt),
			},
		}
		if _, err := transaction.Run(query, parameters); err != nil {
			return nil, authz_errors.ErrDatabaseOperation
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to persist consent grant",
			zap.Error(err),
			zap.String("consentID", consent.ID))
		return err
	}

	logger.Debug("Consent grant persisted", zap.String("consentID", consent.ID))
	return nil
}
