// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tea0112/ecm-identity-service-sub001/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogEvent(ctx context.Context, event audit.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditService) QueryEvents(ctx context.Context, from, to time.Time, tenantID, actor string) ([]audit.AuditEvent, error) {
	args := m.Called(ctx, from, to, tenantID, actor)
	return args.Get(0).([]audit.AuditEvent), args.Error(1)
}
