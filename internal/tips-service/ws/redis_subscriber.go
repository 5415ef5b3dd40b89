package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/sports-tips-platform/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal Redis Pub/Sub alimentado pelo feed-relay
// e repassa cada mudança como invalidação para os clientes do Hub
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var ev events.TipChanged
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(Invalidation{TipID: ev.TipID, Kind: string(ev.Kind)})
			}
		}
	}()
}
