// store/store_test.go
package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	"github.com/tea0112/ecm-identity-service-sub001/propagation"
	"github.com/tea0112/ecm-identity-service-sub001/store"
)

const tenant = "tenant-1"

func newStore(t *testing.T) *store.Store {
	t.Helper()
	logger.InitLogger(t.TempDir())
	return store.NewStore(nil, nil)
}

func TestPutPolicy_Versioning(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, v1, err := s.PutPolicy(ctx, model.Policy{ID: "p1", TenantID: tenant, Name: "v1", Effect: model.EffectAllow})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, int64(1), v1)
	assert.Equal(t, model.PolicyStatusActive, first.Status)

	second, v2, err := s.PutPolicy(ctx, model.Policy{ID: "p1", TenantID: tenant, Name: "v2", Effect: model.EffectAllow})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, int64(2), v2)

	current, err := s.GetPolicy(tenant, "p1")
	require.NoError(t, err)
	assert.Equal(t, "v2", current.Name)
	assert.Empty(t, current.SupersededBy)
}

func TestPutPolicy_Invalid(t *testing.T) {
	s := newStore(t)

	_, _, err := s.PutPolicy(context.Background(), model.Policy{TenantID: tenant})
	assert.ErrorIs(t, err, authz_errors.ErrInvalidPolicyData)
}

func TestSnapshot_CopyOnWrite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, _, err := s.PutPolicy(ctx, model.Policy{ID: "p1", TenantID: tenant, Name: "before", Effect: model.EffectAllow})
	require.NoError(t, err)

	before := s.Snapshot(tenant)
	require.Len(t, before.Policies(), 1)

	_, _, err = s.PutPolicy(ctx, model.Policy{ID: "p2", TenantID: tenant, Name: "after", Effect: model.EffectDeny})
	require.NoError(t, err)

	// The snapshot taken before the write is immutable.
	assert.Len(t, before.Policies(), 1)
	assert.Equal(t, int64(1), before.Version)

	after := s.Snapshot(tenant)
	assert.Len(t, after.Policies(), 2)
	assert.Equal(t, int64(2), after.Version)
}

func TestRollbackPolicy(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	t.Run("NoPreviousVersion", func(t *testing.T) {
		_, _, err := s.PutPolicy(ctx, model.Policy{ID: "single", TenantID: tenant, Name: "only", Effect: model.EffectAllow})
		require.NoError(t, err)

		_, _, err = s.RollbackPolicy(ctx, tenant, "single")
		assert.ErrorIs(t, err, authz_errors.ErrNoPreviousVersion)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, _, err := s.RollbackPolicy(ctx, tenant, "missing")
		assert.ErrorIs(t, err, authz_errors.ErrPolicyNotFound)
	})

	t.Run("RestoresPreviousContent", func(t *testing.T) {
		_, _, err := s.PutPolicy(ctx, model.Policy{ID: "p1", TenantID: tenant, Name: "good", Effect: model.EffectAllow})
		require.NoError(t, err)
		_, _, err = s.PutPolicy(ctx, model.Policy{ID: "p1", TenantID: tenant, Name: "bad", Effect: model.EffectAllow})
		require.NoError(t, err)

		restored, _, err := s.RollbackPolicy(ctx, tenant, "p1")
		require.NoError(t, err)
		assert.Equal(t, "good", restored.Name)
		assert.Equal(t, 3, restored.Version)
		assert.Equal(t, model.PolicyStatusActive, restored.Status)

		current, err := s.GetPolicy(tenant, "p1")
		require.NoError(t, err)
		assert.Equal(t, "good", current.Name)
	})
}

func TestSearchPolicies(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seed := []model.Policy{
		{ID: "p1", TenantID: tenant, Name: "Billing read", Effect: model.EffectAllow, Priority: 10},
		{ID: "p2", TenantID: tenant, Name: "Billing write", Effect: model.EffectDeny, Priority: 20},
		{ID: "p3", TenantID: tenant, Name: "Admin console", Effect: model.EffectAllow, Priority: 5},
	}
	for _, policy := range seed {
		_, _, err := s.PutPolicy(ctx, policy)
		require.NoError(t, err)
	}
	// p3 gets a second version; only the latest should be searched.
	_, _, err := s.PutPolicy(ctx, model.Policy{ID: "p3", TenantID: tenant, Name: "Admin console v2", Effect: model.EffectAllow, Priority: 5})
	require.NoError(t, err)

	t.Run("NameIsCaseInsensitiveSubstring", func(t *testing.T) {
		matches := s.SearchPolicies(tenant, model.PolicySearchCriteria{Name: "billing"})
		require.Len(t, matches, 2)
		assert.Equal(t, "p1", matches[0].ID)
		assert.Equal(t, "p2", matches[1].ID)
	})

	t.Run("LatestVersionOnly", func(t *testing.T) {
		matches := s.SearchPolicies(tenant, model.PolicySearchCriteria{Name: "admin"})
		require.Len(t, matches, 1)
		assert.Equal(t, "Admin console v2", matches[0].Name)
		assert.Equal(t, 2, matches[0].Version)
	})

	t.Run("EffectAndPriorityRange", func(t *testing.T) {
		matches := s.SearchPolicies(tenant, model.PolicySearchCriteria{Effect: model.EffectAllow, MinPriority: 6})
		require.Len(t, matches, 1)
		assert.Equal(t, "p1", matches[0].ID)

		// MaxPriority zero leaves the upper bound open.
		matches = s.SearchPolicies(tenant, model.PolicySearchCriteria{MinPriority: 6, MaxPriority: 0})
		assert.Len(t, matches, 2)
	})

	t.Run("SortedByPriorityThenLimited", func(t *testing.T) {
		matches := s.SearchPolicies(tenant, model.PolicySearchCriteria{Limit: 2})
		require.Len(t, matches, 2)
		assert.Equal(t, "p3", matches[0].ID)
		assert.Equal(t, "p1", matches[1].ID)
	})

	t.Run("NoMatches", func(t *testing.T) {
		assert.Empty(t, s.SearchPolicies(tenant, model.PolicySearchCriteria{Status: model.PolicyStatusDisabled}))
	})
}

func TestTenantIsolation(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, _, err := s.PutPolicy(ctx, model.Policy{ID: "p1", TenantID: "tenant-a", Effect: model.EffectAllow})
	require.NoError(t, err)

	assert.Equal(t, int64(1), s.CurrentVersion("tenant-a"))
	assert.Equal(t, int64(0), s.CurrentVersion("tenant-b"))
	assert.Empty(t, s.Snapshot("tenant-b").Policies())
}

func TestWithdrawConsent_Idempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, _, err := s.PutConsent(ctx, model.ConsentGrant{
		ID: "c1", TenantID: tenant, PrincipalID: "alice",
		ApplicationID: "app-1", ResourcePattern: "profile:*", Actions: []string{"read"},
	})
	require.NoError(t, err)

	v1, err := s.WithdrawConsent(ctx, tenant, "c1")
	require.NoError(t, err)

	v2, err := s.WithdrawConsent(ctx, tenant, "c1")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	withdrawn, err := s.GetConsent(tenant, "c1")
	require.NoError(t, err)
	assert.NotNil(t, withdrawn.WithdrawnAt)
}

func TestCommit_PublishesVersionedEvents(t *testing.T) {
	logger.InitLogger(t.TempDir())
	bus := propagation.NewBus(16)
	events := bus.Subscribe(tenant)
	s := store.NewStore(bus, nil)
	ctx := context.Background()

	_, _, err := s.PutPolicy(ctx, model.Policy{ID: "p1", TenantID: tenant, Effect: model.EffectAllow})
	require.NoError(t, err)
	_, err = s.Revoke(ctx, tenant, model.RevocationTargetUser, "alice", "offboarded")
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, propagation.KindPolicyChanged, first.Kind)

	second := <-events
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, propagation.KindRevocation, second.Kind)

	select {
	case extra := <-events:
		t.Fatalf("unexpected extra event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}
