// service/breakglass_service_test.go
package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
)

func emergencyRequest() model.BreakGlassRequest {
	return model.BreakGlassRequest{
		TenantID:              tenant,
		RequestedBy:           "carol",
		TargetRole:            "emergency-admin",
		Scope:                 "prod",
		EmergencyType:         "outage",
		Severity:              "critical",
		Justification:         "primary database down",
		RequiredApprovalCount: 2,
	}
}

func TestBreakGlass_ApprovalLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.allowPolicy(t, "emergency", []string{"role:emergency-admin"})

	created, err := f.breakGlass.RequestAccess(ctx, emergencyRequest())
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusRequested, created.Status)
	assert.NotEmpty(t, created.ID)

	// One of two approvals: the grant must not be visible yet.
	partial, err := f.breakGlass.Approve(ctx, tenant, created.ID, "sec-lead", "security", "confirmed outage")
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusPartialApproval, partial.Status)

	decision, err := f.authz.Evaluate(ctx, tenant, accessRequest("carol", "prod:db-primary", "restart"))
	require.NoError(t, err)
	assert.Equal(t, model.EffectDeny, decision.Effect)

	// A second approval from the same role does not count.
	repeat, err := f.breakGlass.Approve(ctx, tenant, created.ID, "other-sec", "security", "")
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusPartialApproval, repeat.Status)
	assert.Len(t, repeat.Approvals, 1)

	// The second distinct role activates the grant.
	active, err := f.breakGlass.Approve(ctx, tenant, created.ID, "compliance-lead", "compliance", "")
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusActive, active.Status)
	assert.NotEmpty(t, active.GrantedAssignmentID)

	decision, err = f.authz.Evaluate(ctx, tenant, accessRequest("carol", "prod:db-primary", "restart"))
	require.NoError(t, err)
	assert.Equal(t, model.EffectAllow, decision.Effect)
	assert.Contains(t, decision.Reason, "break-glass")

	// Approving an already-active request is a no-op.
	again, err := f.breakGlass.Approve(ctx, tenant, created.ID, "third", "legal", "")
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusActive, again.Status)

	// An active request cannot be denied anymore.
	_, err = f.breakGlass.Deny(ctx, tenant, created.ID, "sec-lead", "too late")
	assert.ErrorIs(t, err, authz_errors.ErrInvalidTransition)
}

func TestBreakGlass_ConcurrentDistinctRoleApprovals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.allowPolicy(t, "emergency", []string{"role:emergency-admin"})

	// Two racing approvals from distinct roles must both count: the request
	// has to end up ACTIVE with both approvals recorded, never stuck in
	// PARTIAL_APPROVAL with one of them lost.
	for i := 0; i < 50; i++ {
		created, err := f.breakGlass.RequestAccess(ctx, emergencyRequest())
		require.NoError(t, err)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for _, role := range []string{"security", "compliance"} {
			wg.Add(1)
			go func(role string) {
				defer wg.Done()
				<-start
				_, err := f.breakGlass.Approve(ctx, tenant, created.ID, role+"-lead", role, "")
				assert.NoError(t, err)
			}(role)
		}
		close(start)
		wg.Wait()

		status, err := f.breakGlass.Status(ctx, tenant, created.ID)
		require.NoError(t, err)
		require.Equal(t, model.BreakGlassStatusActive, status.Status)
		require.Len(t, status.Approvals, 2)
		require.NotEmpty(t, status.GrantedAssignmentID)
	}
}

func TestBreakGlass_Deny(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.breakGlass.RequestAccess(ctx, emergencyRequest())
	require.NoError(t, err)

	denied, err := f.breakGlass.Deny(ctx, tenant, created.ID, "sec-lead", "not an emergency")
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusDenied, denied.Status)

	// DENIED is terminal.
	_, err = f.breakGlass.Approve(ctx, tenant, created.ID, "sec-lead", "security", "")
	assert.ErrorIs(t, err, authz_errors.ErrInvalidTransition)
}

func TestBreakGlass_RevokeActiveGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.allowPolicy(t, "emergency", []string{"role:emergency-admin"})

	request := emergencyRequest()
	request.RequiredApprovalCount = 1
	created, err := f.breakGlass.RequestAccess(ctx, request)
	require.NoError(t, err)

	active, err := f.breakGlass.Approve(ctx, tenant, created.ID, "sec-lead", "security", "")
	require.NoError(t, err)
	require.Equal(t, model.BreakGlassStatusActive, active.Status)

	revoked, err := f.breakGlass.Revoke(ctx, tenant, created.ID, "admin", "situation contained")
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusRevoked, revoked.Status)

	decision, err := f.authz.Evaluate(ctx, tenant, accessRequest("carol", "prod:db-primary", "restart"))
	require.NoError(t, err)
	assert.Equal(t, model.EffectDeny, decision.Effect)
}

func TestBreakGlass_SweepExpiresActiveGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.allowPolicy(t, "emergency", []string{"role:emergency-admin"})

	request := emergencyRequest()
	request.RequiredApprovalCount = 1
	request.ActivationExpiry = time.Now().Add(30 * time.Millisecond)
	created, err := f.breakGlass.RequestAccess(ctx, request)
	require.NoError(t, err)

	active, err := f.breakGlass.Approve(ctx, tenant, created.ID, "sec-lead", "security", "")
	require.NoError(t, err)
	require.Equal(t, model.BreakGlassStatusActive, active.Status)

	time.Sleep(50 * time.Millisecond)
	f.breakGlass.sweep(ctx)

	expired, err := f.breakGlass.Status(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusExpired, expired.Status)

	// The expiry revoked the grant through the normal revocation path.
	decision, err := f.authz.Evaluate(ctx, tenant, accessRequest("carol", "prod:db-primary", "restart"))
	require.NoError(t, err)
	assert.Equal(t, model.EffectDeny, decision.Effect)
	assert.Equal(t, pdp_model.ReasonNoMatchingPolicy, decision.Reason)
}

func TestBreakGlass_SweepExpiresPendingRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request := emergencyRequest()
	request.ActivationExpiry = time.Now().Add(-time.Minute)
	created, err := f.breakGlass.RequestAccess(ctx, request)
	require.NoError(t, err)

	f.breakGlass.sweep(ctx)

	expired, err := f.breakGlass.Status(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BreakGlassStatusExpired, expired.Status)

	_, err = f.breakGlass.Approve(ctx, tenant, created.ID, "sec-lead", "security", "")
	assert.ErrorIs(t, err, authz_errors.ErrInvalidTransition)
}

func TestBreakGlass_RequestValidation(t *testing.T) {
	f := newFixture(t)

	request := emergencyRequest()
	request.TargetRole = ""
	_, err := f.breakGlass.RequestAccess(context.Background(), request)
	assert.ErrorIs(t, err, authz_errors.ErrInvalidBreakGlassData)
}
