// dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	helper_util "github.com/tea0112/ecm-identity-service-sub001/util/helper"
)

// AuthzDAO mirrors the in-memory store into Neo4j. Each record version is a
// separate node keyed by (tenant, id, version) so history is append-only at
// the storage layer too.
type AuthzDAO struct {
	Driver neo4j.Driver
}

func NewAuthzDAO(driver neo4j.Driver) *AuthzDAO {
	dao := &AuthzDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureConstraints(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraints", zap.Error(err))
	}
	return dao
}

// EnsureConstraints ensures uniqueness of versioned records.
func (dao *AuthzDAO) EnsureConstraints(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on authorization records")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	constraints := []string{
		`CREATE CONSTRAINT unique_policy_version IF NOT EXISTS
         FOR (p:POLICY) REQUIRE (p.tenant_id, p.id, p.version) IS UNIQUE`,
		`CREATE CONSTRAINT unique_assignment_id IF NOT EXISTS
         FOR (a:ROLE_ASSIGNMENT) REQUIRE (a.tenant_id, a.id) IS UNIQUE`,
		`CREATE CONSTRAINT unique_consent_id IF NOT EXISTS
         FOR (c:CONSENT) REQUIRE (c.tenant_id, c.id) IS UNIQUE`,
		`CREATE CONSTRAINT unique_breakglass_id IF NOT EXISTS
         FOR (b:BREAK_GLASS) REQUIRE (b.tenant_id, b.id) IS UNIQUE`,
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		for _, query := range constraints {
			if _, err := transaction.Run(query, nil); err != nil {
				return nil, fmt.Errorf("failed to create constraint: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraints", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured unique constraints")
	return nil
}

// SavePolicy persists one immutable policy version node.
func (dao *AuthzDAO) SavePolicy(ctx context.Context, policy model.Policy) error {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (p:POLICY {tenant_id: $tenant_id, id: $id, version: $version})
        ON CREATE SET p += $props
        ON MATCH SET p.status = $props.status, p.superseded_by = $props.superseded_by, p.updated_at = $props.updated_at
        RETURN p.id as id
        `

		subjectsJSON, _ := json.Marshal(policy.Subjects)
		resourcesJSON, _ := json.Marshal(policy.Resources)
		actionsJSON, _ := json.Marshal(policy.Actions)
		conditionsJSON, _ := json.Marshal(policy.Conditions)

		parameters := map[string]interface{}{
			"tenant_id": policy.TenantID,
			"id":        policy.ID,
			"version":   policy.Version,
			"props": map[string]interface{}{
				"name":             policy.Name,
				"description":      policy.Description,
				"effect":           policy.Effect,
				"priority":         policy.Priority,
				"status":           policy.Status,
				"superseded_by":    policy.SupersededBy,
				"consent_required": policy.ConsentRequired,
				"created_at":       policy.CreatedAt.Format(time.RFC3339),
				"updated_at":       policy.UpdatedAt.Format(time.RFC3339),
				"subjects":         string(subjectsJSON),
				"resources":        string(resourcesJSON),
				"actions":          string(actionsJSON),
				"conditions":       string(conditionsJSON),
			},
		}
		if _, err := transaction.Run(query, parameters); err != nil {
			return nil, authz_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to persist policy version",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Int("version", policy.Version),
			zap.Duration("duration", duration))
		return err
	}

	logger.Debug("Policy version persisted",
		zap.String("policyID", policy.ID),
		zap.Int("version", policy.Version),
		zap.Duration("duration", duration))
	return nil
}

// GetPolicyVersions returns all persisted versions of a policy, oldest first.
func (dao *AuthzDAO) GetPolicyVersions(ctx context.Context, tenantID, policyID string) ([]model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:POLICY {tenant_id: $tenant_id, id: $id})
        RETURN p
        ORDER BY p.version ASC
        `
		records, err := transaction.Run(query, map[string]interface{}{
			"tenant_id": tenantID,
			"id":        policyID,
		})
		if err != nil {
			return nil, authz_errors.ErrDatabaseOperation
		}

		var policies []model.Policy
		for records.Next() {
			node, ok := records.Record().Get("p")
			if !ok {
				continue
			}
			policy, err := parsePolicyNode(node.(neo4j.Node))
			if err != nil {
				return nil, err
			}
			policies = append(policies, policy)
		}
		return policies, nil
	})
	if err != nil {
		return nil, err
	}

	policies := result.([]model.Policy)
	if len(policies) == 0 {
		return nil, authz_errors.ErrPolicyNotFound
	}
	return policies, nil
}

func parsePolicyNode(node neo4j.Node) (model.Policy, error) {
	props := node.Props
	policy := model.Policy{
		TenantID:        stringProp(props, "tenant_id"),
		ID:              stringProp(props, "id"),
		Name:            stringProp(props, "name"),
		Description:     stringProp(props, "description"),
		Effect:          stringProp(props, "effect"),
		Status:          stringProp(props, "status"),
		SupersededBy:    stringProp(props, "superseded_by"),
		Priority:        intProp(props, "priority"),
		Version:         intProp(props, "version"),
		ConsentRequired: boolProp(props, "consent_required"),
	}

	if err := json.Unmarshal([]byte(stringProp(props, "subjects")), &policy.Subjects); err != nil {
		return model.Policy{}, fmt.Errorf("failed to parse policy subjects: %w", err)
	}
	if err := json.Unmarshal([]byte(stringProp(props, "resources")), &policy.Resources); err != nil {
		return model.Policy{}, fmt.Errorf("failed to parse policy resources: %w", err)
	}
	if err := json.Unmarshal([]byte(stringProp(props, "actions")), &policy.Actions); err != nil {
		return model.Policy{}, fmt.Errorf("failed to parse policy actions: %w", err)
	}
	if conditions := stringProp(props, "conditions"); conditions != "" {
		if err := json.Unmarshal([]byte(conditions), &policy.Conditions); err != nil {
			return model.Policy{}, fmt.Errorf("failed to parse policy conditions: %w", err)
		}
	}

	// Depending on the driver version, timestamp props come back as strings
	// or as native times.
	if createdAt, err := helper_util.ParseNullableTime(props["created_at"]); err == nil && createdAt != nil {
		policy.CreatedAt = *createdAt
	}
	if updatedAt, err := helper_util.ParseNullableTime(props["updated_at"]); err == nil && updatedAt != nil {
		policy.UpdatedAt = *updatedAt
	}
	return policy, nil
}

func stringProp(props map[string]interface{}, key string) string {
	if value, ok := props[key].(string); ok {
		return value
	}
	return ""
}

func intProp(props map[string]interface{}, key string) int {
	if value, ok := props[key].(int64); ok {
		return int(value)
	}
	return 0
}

func boolProp(props map[string]interface{}, key string) bool {
	if value, ok := props[key].(bool); ok {
		return value
	}
	return false
}
