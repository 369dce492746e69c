// propagation/redis.go
package propagation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
)

// RedisChannel fans revocation events out to engine instances on other hosts
// via Redis pub/sub. The in-process Bus stays authoritative for the local
// instance; RedisChannel is the cross-instance leg of the same channel.
type RedisChannel struct {
	client *redis.Client
}

func NewRedisChannel(client *redis.Client) *RedisChannel {
	return &RedisChannel{client: client}
}

func channelName(tenant string) string {
	return fmt.Sprintf("authz:events:%s", tenant)
}

// Publish marshals the event and publishes it on the tenant's channel.
func (r *RedisChannel) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal propagation event: %w", err)
	}
	if err := r.client.Publish(ctx, channelName(event.Tenant), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish propagation event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of decoded events for the tenant, or for every
// tenant when tenant is "*". The stream closes when ctx is cancelled.
// Undecodable payloads are logged and skipped; the subscriber sees them as a
// version gap and resynchronizes.
func (r *RedisChannel) Subscribe(ctx context.Context, tenant string) <-chan Event {
	var pubsub *redis.PubSub
	if tenant == "*" {
		pubsub = r.client.PSubscribe(ctx, channelName("*"))
	} else {
		pubsub = r.client.Subscribe(ctx, channelName(tenant))
	}
	events := make(chan Event, 64)

	go func() {
		defer close(events)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Error("Failed to decode propagation event",
						zap.Error(err),
						zap.String("tenant", tenant))
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events
}

// MultiPublisher publishes to several channels in order and fails on the
// first error so the originating write is not acknowledged on partial fanout.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
