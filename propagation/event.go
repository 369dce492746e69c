// propagation/event.go
package propagation

import (
	"context"
	"time"
)

// Event kinds carried on the propagation channel. Every tenant mutation that
// can change a decision outcome produces exactly one event.
const (
	KindPolicyChanged      = "policy.changed"
	KindPolicyRolledBack   = "policy.rolled_back"
	KindAssignmentCreated  = "assignment.created"
	KindAssignmentRevoked  = "assignment.revoked"
	KindConsentGranted     = "consent.granted"
	KindConsentWithdrawn   = "consent.withdrawn"
	KindRevocation         = "revocation"
	KindMassRevocation     = "revocation.mass"
	KindBreakGlassUpdated  = "breakglass.updated"
	KindBreakGlassActive   = "breakglass.activated"
	KindBreakGlassExpired  = "breakglass.expired"
	KindBreakGlassRevoked  = "breakglass.revoked"
)

// Event is a versioned invalidation notice. Events for a tenant are published
// in version order; subscribers treat a skipped version as a lost event and
// resynchronize instead of trusting their local state.
type Event struct {
	Tenant     string    `json:"tenant"`
	Version    int64     `json:"version"`
	Kind       string    `json:"kind"`
	TargetType string    `json:"target_type,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher pushes an event to all engine instances. The write that produced
// the event is not acknowledged until Publish returns.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber delivers the ordered event stream for a tenant, or for every
// tenant when tenant is "*". The stream closes when ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, tenant string) <-chan Event
}
