// propagation/bus.go

package propagation

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
)

// Bus is the in-process propagation channel. Subscribers receive events for
// their tenant in publish (version) order on a buffered channel; a subscriber
// that falls so far behind its buffer fills gets the event dropped and an
// error reported, which the subscriber then detects as a version gap.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event // tenant -> subscriber channels; "*" receives all tenants
	errorChan   chan error
	bufferSize  int
}

// NewBus creates a new Bus.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subscribers: make(map[string][]chan Event),
		errorChan:   make(chan error, 100), // Buffer size can be adjusted
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new subscriber for a tenant's event stream. Passing
// "*" subscribes to every tenant.
func (b *Bus) Subscribe(tenant string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers[tenant] = append(b.subscribers[tenant], ch)
	return ch
}

// Publish delivers the event to every subscriber of the event's tenant.
// Delivery is synchronous into each subscriber channel so version order is
// preserved; a full channel means the subscriber lost the event and must
// resynchronize from the version gap it will observe.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	channels := append([]chan Event{}, b.subscribers[event.Tenant]...)
	channels = append(channels, b.subscribers["*"]...)
	b.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- event:
		default:
			err := fmt.Errorf("subscriber buffer full, dropped event version %d for tenant %s", event.Version, event.Tenant)
			select {
			case b.errorChan <- err:
			default:
				logger.Error("Error channel full, logging dropped propagation event",
					zap.Error(err),
					zap.String("tenant", event.Tenant),
					zap.Int64("version", event.Version))
			}
		}
	}
	return nil
}

// Start begins processing delivery errors.
func (b *Bus) Start(ctx context.Context) {
	go b.processErrors(ctx)
}

// processErrors handles errors from event delivery
func (b *Bus) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-b.errorChan:
			logger.Error("Propagation delivery error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

// Unsubscribe removes a subscriber channel for a tenant.
func (b *Bus) Unsubscribe(tenant string, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channels := b.subscribers[tenant]
	for i, c := range channels {
		if c == ch {
			b.subscribers[tenant] = append(channels[:i], channels[i+1:]...)
			close(c)
			break
		}
	}
}
