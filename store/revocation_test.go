// store/revocation_test.go
package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	"github.com/tea0112/ecm-identity-service-sub001/model"
)

func TestRevoke(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	t.Run("UnknownTargetType", func(t *testing.T) {
		_, err := s.Revoke(ctx, tenant, "group", "g1", "typo")
		assert.ErrorIs(t, err, authz_errors.ErrRevocationTargetUnknown)
	})

	t.Run("MarksAndVersions", func(t *testing.T) {
		version, err := s.Revoke(ctx, tenant, model.RevocationTargetSession, "session-9", "stolen token")
		require.NoError(t, err)
		assert.Equal(t, version, s.CurrentVersion(tenant))
		assert.True(t, s.IsRevoked(tenant, model.RevocationTargetSession, "session-9", time.Now()))

		mark, ok := s.Snapshot(tenant).Mark(model.RevocationTargetSession, "session-9")
		require.True(t, ok)
		assert.Equal(t, "stolen token", mark.Reason)
		assert.Equal(t, version, mark.Version)
	})

	t.Run("Idempotent", func(t *testing.T) {
		v1, err := s.Revoke(ctx, tenant, model.RevocationTargetUser, "mallory", "compromised")
		require.NoError(t, err)
		v2, err := s.Revoke(ctx, tenant, model.RevocationTargetUser, "mallory", "again")
		require.NoError(t, err)

		assert.Equal(t, v1, v2)
		assert.Equal(t, v1, s.CurrentVersion(tenant))

		// The first reason wins; marks are write-once.
		mark, ok := s.Snapshot(tenant).Mark(model.RevocationTargetUser, "mallory")
		require.True(t, ok)
		assert.Equal(t, "compromised", mark.Reason)
	})
}

func TestRevokeAssignmentCascade(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	// root -> child-0 .. child-2, child-0 -> grandchild
	_, _, err := s.CreateAssignment(ctx, model.RoleAssignment{
		ID: "root", TenantID: tenant, PrincipalID: "alice", RoleName: "auditor",
	})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err := s.CreateAssignment(ctx, model.RoleAssignment{
			ID: fmt.Sprintf("child-%d", i), TenantID: tenant, PrincipalID: fmt.Sprintf("delegate-%d", i),
			RoleName: "auditor", Type: model.AssignmentTypeDelegated, ParentAssignmentID: "root", DelegationDepth: 1,
		})
		require.NoError(t, err)
	}
	_, _, err = s.CreateAssignment(ctx, model.RoleAssignment{
		ID: "grandchild", TenantID: tenant, PrincipalID: "delegate-9",
		RoleName: "auditor", Type: model.AssignmentTypeDelegated, ParentAssignmentID: "child-0", DelegationDepth: 2,
	})
	require.NoError(t, err)

	before := s.CurrentVersion(tenant)
	revoked, version, err := s.RevokeAssignmentCascade(ctx, tenant, "root", "departed")
	require.NoError(t, err)

	// The whole tree lands in a single version bump.
	assert.Len(t, revoked, 5)
	assert.Equal(t, before+1, version)

	for _, id := range []string{"root", "child-0", "child-1", "child-2", "grandchild"} {
		assignment, err := s.GetAssignment(tenant, id)
		require.NoError(t, err)
		assert.Equal(t, model.AssignmentStatusRevoked, assignment.Status, id)

		_, ok := s.Snapshot(tenant).Mark(model.RevocationTargetAssignment, id)
		assert.True(t, ok, id)
	}

	t.Run("AlreadyRevoked", func(t *testing.T) {
		again, v, err := s.RevokeAssignmentCascade(ctx, tenant, "root", "again")
		require.NoError(t, err)
		assert.Empty(t, again)
		assert.Equal(t, version, v)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, _, err := s.RevokeAssignmentCascade(ctx, tenant, "missing", "x")
		assert.ErrorIs(t, err, authz_errors.ErrAssignmentNotFound)
	})
}

func TestMassRevoke(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, _, err := s.CreateAssignment(ctx, model.RoleAssignment{
		ID: "direct", TenantID: tenant, PrincipalID: "bob", RoleName: "operator",
	})
	require.NoError(t, err)
	_, _, err = s.CreateAssignment(ctx, model.RoleAssignment{
		ID: "jit", TenantID: tenant, PrincipalID: "bob", RoleName: "admin", Type: model.AssignmentTypeJIT,
	})
	require.NoError(t, err)
	_, _, err = s.CreateAssignment(ctx, model.RoleAssignment{
		ID: "delegated-out", TenantID: tenant, PrincipalID: "eve",
		RoleName: "operator", Type: model.AssignmentTypeDelegated, ParentAssignmentID: "direct", DelegationDepth: 1,
	})
	require.NoError(t, err)

	before := s.CurrentVersion(tenant)
	revoked, version, err := s.MassRevoke(ctx, tenant, "bob", "account takeover")
	require.NoError(t, err)

	assert.Equal(t, before+1, version)
	assert.ElementsMatch(t, []string{"direct", "jit", "delegated-out"}, revoked)

	snapshot := s.Snapshot(tenant)
	_, ok := snapshot.Mark(model.RevocationTargetUser, "bob")
	assert.True(t, ok)

	// The delegation bob handed out is down as well.
	delegated, err := s.GetAssignment(tenant, "delegated-out")
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusRevoked, delegated.Status)
}
