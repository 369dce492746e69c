// util/lock_service.go

package util

import (
	"context"
	"time"

	"github.com/tea0112/ecm-identity-service-sub001/db"
)

// LockService fronts the Redis distributed lock for mutations that must not
// run concurrently across engine instances. When Redis is not wired
// (embedded deployments and tests) the store's per-tenant write lock already
// serializes writers, so acquisition degrades to an immediate grant.
type LockService struct{}

func NewLockService() *LockService {
	return &LockService{}
}

func (l *LockService) Acquire(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	if db.RedisClient == nil {
		return true, nil
	}
	return db.LockResource(ctx, resource, ttl)
}

func (l *LockService) Release(ctx context.Context, resource string) error {
	if db.RedisClient == nil {
		return nil
	}
	return db.UnlockResource(ctx, resource)
}
