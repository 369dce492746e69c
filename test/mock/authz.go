// test/mock/authz.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tea0112/ecm-identity-service-sub001/audit"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
)

// MockAuthzService is a mock implementation of service.IAuthzService
type MockAuthzService struct {
	mock.Mock
}

func (m *MockAuthzService) Evaluate(ctx context.Context, tenantID string, request pdp_model.AccessRequest) (*pdp_model.Decision, error) {
	args := m.Called(ctx, tenantID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdp_model.Decision), args.Error(1)
}

func (m *MockAuthzService) EvaluateBatch(ctx context.Context, tenantID string, requests []pdp_model.AccessRequest) ([]pdp_model.Decision, error) {
	args := m.Called(ctx, tenantID, requests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pdp_model.Decision), args.Error(1)
}

// NoopAuditService discards every event. Service tests that do not assert on
// audit emission use it instead of wiring expectations for each call.
type NoopAuditService struct{}

func (NoopAuditService) LogEvent(ctx context.Context, event audit.AuditEvent) error {
	return nil
}

func (NoopAuditService) QueryEvents(ctx context.Context, from, to time.Time, tenantID, actor string) ([]audit.AuditEvent, error) {
	return nil, nil
}
