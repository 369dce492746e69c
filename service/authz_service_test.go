// service/authz_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
	"github.com/tea0112/ecm-identity-service-sub001/propagation"
	"github.com/tea0112/ecm-identity-service-sub001/store"
	"github.com/tea0112/ecm-identity-service-sub001/test/mock"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

const tenant = "tenant-1"

type fixture struct {
	store      *store.Store
	bus        *propagation.Bus
	authz      *AuthzService
	policy     *PolicyService
	delegation *DelegationService
	revocation *RevocationService
	consent    *ConsentService
	breakGlass *BreakGlassService
	directory  *StaticTenantDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger.InitLogger(t.TempDir())

	bus := propagation.NewBus(256)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	bus.Start(ctx)

	authzStore := store.NewStore(bus, nil)
	directory := NewStaticTenantDirectory(tenant)
	validationUtil := util.NewValidationUtil()
	cacheService := util.NewCacheService()
	notificationService := util.NewNotificationService()
	auditService := mock.NoopAuditService{}

	authz := NewAuthzService(authzStore, directory, validationUtil, cacheService, auditService, bus, nil, time.Second, time.Second)
	authz.Start(ctx)

	return &fixture{
		store:      authzStore,
		bus:        bus,
		authz:      authz,
		policy:     NewPolicyService(authzStore, validationUtil, auditService, notificationService),
		delegation: NewDelegationService(authzStore, validationUtil, auditService),
		revocation: NewRevocationService(authzStore, auditService, notificationService),
		consent:    NewConsentService(authzStore, validationUtil, auditService),
		breakGlass: NewBreakGlassService(authzStore, validationUtil, auditService, notificationService, util.NewLockService(), time.Hour),
		directory:  directory,
	}
}

func (f *fixture) allowPolicy(t *testing.T, id string, subjects []string) {
	t.Helper()
	_, err := f.policy.CreateOrUpdatePolicy(context.Background(), "admin", model.Policy{
		ID: id, TenantID: tenant, Name: id, Effect: model.EffectAllow, Priority: 1,
		Subjects: subjects, Resources: []string{"*"}, Actions: []string{"*"},
	})
	require.NoError(t, err)
}

func accessRequest(subjectID, resource, action string) pdp_model.AccessRequest {
	return pdp_model.AccessRequest{
		Subject:  pdp_model.Subject{ID: subjectID, SessionID: "session-1"},
		Resource: resource,
		Action:   action,
	}
}

func TestAuthzService_Evaluate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.allowPolicy(t, "allow-alice", []string{"user:alice"})

	t.Run("Allow", func(t *testing.T) {
		before := time.Now()
		decision, err := f.authz.Evaluate(ctx, tenant, accessRequest("alice", "document:x", "read"))
		require.NoError(t, err)

		assert.Equal(t, model.EffectAllow, decision.Effect)
		assert.Equal(t, "allow-alice", decision.MatchedPolicyID)
		assert.True(t, decision.Allowed())

		// The validity horizon never exceeds the propagation SLA.
		assert.False(t, decision.ValidUntil.After(before.Add(2*time.Second)))
		assert.True(t, decision.ValidUntil.After(before))
	})

	t.Run("DefaultDeny", func(t *testing.T) {
		decision, err := f.authz.Evaluate(ctx, tenant, accessRequest("nobody", "document:x", "read"))
		require.NoError(t, err)
		assert.Equal(t, model.EffectDeny, decision.Effect)
		assert.Equal(t, pdp_model.ReasonNoMatchingPolicy, decision.Reason)
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		_, err := f.authz.Evaluate(ctx, tenant, accessRequest("alice", "", "read"))
		assert.ErrorIs(t, err, authz_errors.ErrInvalidRequest)
	})

	t.Run("UnknownTenant", func(t *testing.T) {
		_, err := f.authz.Evaluate(ctx, "ghost", accessRequest("alice", "document:x", "read"))
		assert.ErrorIs(t, err, authz_errors.ErrTenantNotFound)
	})

	t.Run("SuspendedTenantDeniesEverything", func(t *testing.T) {
		f.directory.SetStatus(tenant, TenantStatusSuspended)
		defer f.directory.SetStatus(tenant, TenantStatusActive)

		decision, err := f.authz.Evaluate(ctx, tenant, accessRequest("alice", "document:x", "read"))
		require.NoError(t, err)
		assert.Equal(t, model.EffectDeny, decision.Effect)
		assert.Equal(t, pdp_model.ReasonTenantInactive, decision.Reason)
	})
}

func TestAuthzService_MassRevocationVisibleWithinSLA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.allowPolicy(t, "allow-ops", []string{"role:operator"})
	_, _, err := f.store.CreateAssignment(ctx, model.RoleAssignment{
		ID: "op-1", TenantID: tenant, PrincipalID: "bob", RoleName: "operator",
	})
	require.NoError(t, err)

	decision, err := f.authz.Evaluate(ctx, tenant, accessRequest("bob", "server:1", "restart"))
	require.NoError(t, err)
	require.Equal(t, model.EffectAllow, decision.Effect)

	start := time.Now()
	_, _, err = f.revocation.MassRevoke(ctx, "admin", tenant, "bob", "account takeover")
	require.NoError(t, err)

	decision, err = f.authz.Evaluate(ctx, tenant, accessRequest("bob", "server:1", "restart"))
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.Equal(t, model.EffectDeny, decision.Effect)
	assert.Equal(t, pdp_model.ReasonRevoked, decision.Reason)
	assert.Less(t, elapsed, time.Second)
}

func TestAuthzService_ResyncAfterVersionGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.allowPolicy(t, "allow-alice", []string{"user:alice"})

	// Simulate this instance having observed a version the snapshot cannot
	// cover; the next evaluation resynchronizes from the store.
	f.authz.tracker.Resync(tenant, f.store.CurrentVersion(tenant)+10)

	decision, err := f.authz.Evaluate(ctx, tenant, accessRequest("alice", "document:x", "read"))
	require.NoError(t, err)

	assert.Equal(t, model.EffectAllow, decision.Effect)
	assert.False(t, decision.Degraded)
	assert.Equal(t, f.store.CurrentVersion(tenant), f.authz.tracker.LastSeen(tenant))
}

func TestAuthzService_EvaluateBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.allowPolicy(t, "allow-alice", []string{"user:alice"})

	requests := []pdp_model.AccessRequest{
		accessRequest("alice", "document:1", "read"),
		accessRequest("alice", "document:2", "write"),
		accessRequest("mallory", "document:1", "read"),
	}

	decisions, err := f.authz.EvaluateBatch(ctx, tenant, requests)
	require.NoError(t, err)
	require.Len(t, decisions, 3)

	// Order follows the request order and every decision shares one snapshot.
	assert.Equal(t, "document:1", decisions[0].Resource)
	assert.Equal(t, "document:2", decisions[1].Resource)
	assert.Equal(t, model.EffectAllow, decisions[0].Effect)
	assert.Equal(t, model.EffectAllow, decisions[1].Effect)
	assert.Equal(t, model.EffectDeny, decisions[2].Effect)
	assert.Equal(t, decisions[0].SnapshotVersion, decisions[1].SnapshotVersion)
	assert.Equal(t, decisions[0].SnapshotVersion, decisions[2].SnapshotVersion)

	t.Run("InvalidEntryRejectsWholeBatch", func(t *testing.T) {
		_, err := f.authz.EvaluateBatch(ctx, tenant, []pdp_model.AccessRequest{
			accessRequest("alice", "document:1", "read"),
			accessRequest("alice", "document:1", ""),
		})
		assert.ErrorIs(t, err, authz_errors.ErrInvalidRequest)
	})
}

func TestAuthzService_DecisionTTLClampedToSLA(t *testing.T) {
	logger.InitLogger(t.TempDir())
	authzStore := store.NewStore(nil, nil)
	svc := NewAuthzService(authzStore, NewStaticTenantDirectory(tenant), util.NewValidationUtil(),
		util.NewCacheService(), mock.NoopAuditService{}, nil, nil, time.Second, time.Minute)

	assert.Equal(t, time.Second, svc.decisionTTL)
}

// fakeRemote stands in for the Redis cross-instance leg of the propagation
// channel.
type fakeRemote struct {
	events chan propagation.Event
}

func (f *fakeRemote) Subscribe(ctx context.Context, tenant string) <-chan propagation.Event {
	return f.events
}

func TestAuthzService_RemoteEventsFeedFreshness(t *testing.T) {
	logger.InitLogger(t.TempDir())
	authzStore := store.NewStore(nil, nil)
	remote := &fakeRemote{events: make(chan propagation.Event, 8)}
	svc := NewAuthzService(authzStore, NewStaticTenantDirectory(tenant), util.NewValidationUtil(),
		util.NewCacheService(), mock.NoopAuditService{}, nil, remote, time.Second, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Start(ctx)

	// Contiguous events from another instance advance the tracker.
	remote.events <- propagation.Event{Tenant: tenant, Version: 1, Kind: propagation.KindPolicyChanged, OccurredAt: time.Now()}
	remote.events <- propagation.Event{Tenant: tenant, Version: 2, Kind: propagation.KindRevocation, OccurredAt: time.Now()}
	require.Eventually(t, func() bool {
		return svc.tracker.LastSeen(tenant) == 2
	}, time.Second, 5*time.Millisecond)

	// A skipped version forces a resync against the local store.
	remote.events <- propagation.Event{Tenant: tenant, Version: 7, Kind: propagation.KindRevocation, OccurredAt: time.Now()}
	require.Eventually(t, func() bool {
		return svc.tracker.LastSeen(tenant) == authzStore.CurrentVersion(tenant)
	}, time.Second, 5*time.Millisecond)
}
