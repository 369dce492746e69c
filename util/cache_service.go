// util/cache_service.go

package util

import (
	"context"

	"github.com/tea0112/ecm-identity-service-sub001/db"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
)

// CacheService fronts the Redis decision cache. All lookups are scoped to a
// snapshot version, and the cache degrades to a no-op when Redis is not
// wired (embedded deployments and tests).
type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetDecision(ctx context.Context, tenantID string, version int64, subjectID, sessionID, resource, action string) (*pdp_model.Decision, error) {
	if db.RedisClient == nil {
		return nil, nil
	}
	return db.GetCachedDecision(ctx, tenantID, version, subjectID, sessionID, resource, action)
}

func (c *CacheService) SetDecision(ctx context.Context, tenantID string, decision *pdp_model.Decision) error {
	if db.RedisClient == nil {
		return nil
	}
	return db.CacheDecision(ctx, tenantID, decision)
}
