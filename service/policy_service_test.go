// service/policy_service_test.go
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
)

func TestPolicyService_CreateAssignsID(t *testing.T) {
	f := newFixture(t)

	created, err := f.policy.CreateOrUpdatePolicy(context.Background(), "admin", model.Policy{
		TenantID: tenant, Name: "first", Effect: model.EffectAllow,
		Subjects: []string{"user:alice"}, Resources: []string{"*"}, Actions: []string{"*"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
}

func TestPolicyService_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.policy.CreateOrUpdatePolicy(context.Background(), "admin", model.Policy{
		TenantID: tenant, Name: "bad", Effect: "maybe",
		Subjects: []string{"*"}, Resources: []string{"*"}, Actions: []string{"*"},
	})
	assert.ErrorIs(t, err, authz_errors.ErrInvalidPolicyData)
}

func TestPolicyService_RollbackRestoresDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	good := model.Policy{
		ID: "access", TenantID: tenant, Name: "allow alice", Effect: model.EffectAllow, Priority: 1,
		Subjects: []string{"user:alice"}, Resources: []string{"document:*"}, Actions: []string{"read"},
	}
	_, err := f.policy.CreateOrUpdatePolicy(ctx, "admin", good)
	require.NoError(t, err)

	req := pdp_model.AccessRequest{
		Subject: pdp_model.Subject{ID: "alice"}, Resource: "document:x", Action: "read",
	}
	decision, err := f.authz.Evaluate(ctx, tenant, req)
	require.NoError(t, err)
	require.Equal(t, model.EffectAllow, decision.Effect)

	// A bad update takes decisions away.
	bad := good
	bad.Subjects = []string{"user:nobody"}
	_, err = f.policy.CreateOrUpdatePolicy(ctx, "admin", bad)
	require.NoError(t, err)

	decision, err = f.authz.Evaluate(ctx, tenant, req)
	require.NoError(t, err)
	require.Equal(t, model.EffectDeny, decision.Effect)

	// Rollback restores the previous content as a new version.
	restored, err := f.policy.RollbackPolicy(ctx, "admin", tenant, "access")
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Version)
	assert.Equal(t, []string{"user:alice"}, restored.Subjects)

	decision, err = f.authz.Evaluate(ctx, tenant, req)
	require.NoError(t, err)
	assert.Equal(t, model.EffectAllow, decision.Effect)
}
