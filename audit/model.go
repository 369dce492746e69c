// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// Event types emitted to the external append-only audit log.
const (
	EventDecision             = "authz.decision"
	EventDelegationCreated    = "delegation.created"
	EventDelegationRevoked    = "delegation.revoked"
	EventRevocation           = "revocation"
	EventMassRevocation       = "revocation.mass"
	EventBreakGlassTransition = "breakglass.transition"
	EventPolicyChange         = "policy.change"
	EventPolicyRollback       = "policy.rollback"
	EventConsentGranted       = "consent.granted"
	EventConsentWithdrawn     = "consent.withdrawn"
)

// AuditEvent is one structured record. The engine's obligation is complete,
// correctly ordered emission; chaining and signing belong to the log owner.
type AuditEvent struct {
	Timestamp     time.Time       `json:"timestamp"`
	EventType     string          `json:"event_type"`
	TenantID      string          `json:"tenant_id"`
	Actor         string          `json:"actor"`
	Target        string          `json:"target"`
	Outcome       string          `json:"outcome"`
	Reason        string          `json:"reason,omitempty"`
	CorrelationID string          `json:"correlation_id"`
	Details       json.RawMessage `json:"details,omitempty"`
}
