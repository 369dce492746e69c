// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
)

type NotificationService struct {
	// You might want to add dependencies here, such as a message queue client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyPolicyChange(ctx context.Context, changeType string, policy model.Policy) error {
	// In a real implementation, you might send this to a message queue or external notification service
	switch changeType {
	case "created", "updated":
		logger.Info("NOTIFICATION: Policy changed",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name),
			zap.Int("version", policy.Version))
	case "rolled_back":
		logger.Info("NOTIFICATION: Policy rolled back",
			zap.String("policyID", policy.ID),
			zap.Int("restoredVersion", policy.Version))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	return nil
}

// NotifyMassRevocation alerts security operations that a principal's access
// has been fully revoked.
func (n *NotificationService) NotifyMassRevocation(ctx context.Context, tenantID, principalID, reason string) error {
	logger.Warn("NOTIFICATION: Mass revocation executed",
		zap.String("tenantID", tenantID),
		zap.String("principalID", principalID),
		zap.String("reason", reason))
	return nil
}

// NotifyBreakGlass alerts on break-glass lifecycle transitions; activation of
// emergency access is always worth a page.
func (n *NotificationService) NotifyBreakGlass(ctx context.Context, request model.BreakGlassRequest) error {
	logger.Warn("NOTIFICATION: Break-glass transition",
		zap.String("requestID", request.ID),
		zap.String("tenantID", request.TenantID),
		zap.String("status", request.Status),
		zap.String("requestedBy", request.RequestedBy),
		zap.String("targetRole", request.TargetRole))
	return nil
}
