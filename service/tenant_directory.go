// service/tenant_directory.go
package service

import (
	"context"
	"sync"

	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
)

const (
	TenantStatusActive    = "ACTIVE"
	TenantStatusSuspended = "SUSPENDED"
	TenantStatusDeleted   = "DELETED"
)

// TenantDirectory is the external collaborator that knows which tenants
// exist and whether they are active. A non-ACTIVE tenant resolves every
// decision to deny.
type TenantDirectory interface {
	TenantStatus(ctx context.Context, tenantID string) (string, error)
}

// StaticTenantDirectory is an in-memory directory used for embedded
// deployments and tests; production wires the real directory service here.
type StaticTenantDirectory struct {
	mu       sync.RWMutex
	statuses map[string]string
}

func NewStaticTenantDirectory(activeTenants ...string) *StaticTenantDirectory {
	statuses := make(map[string]string, len(activeTenants))
	for _, tenant := range activeTenants {
		statuses[tenant] = TenantStatusActive
	}
	return &StaticTenantDirectory{statuses: statuses}
}

func (d *StaticTenantDirectory) SetStatus(tenantID, status string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[tenantID] = status
}

func (d *StaticTenantDirectory) TenantStatus(ctx context.Context, tenantID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	status, ok := d.statuses[tenantID]
	if !ok {
		return "", authz_errors.ErrTenantNotFound
	}
	return status, nil
}
