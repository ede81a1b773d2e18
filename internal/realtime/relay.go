package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultChannel = "ecotrack:events"

// Relay fans messages out across instances through Redis pub/sub. Emit
// publishes; Run subscribes and hands every received message to the local hub.
type Relay struct {
	Rdb     *redis.Client
	Channel string
	Hub     *Hub
}

func (r *Relay) channel() string {
	if r.Channel == "" {
		return DefaultChannel
	}
	return r.Channel
}

func (r *Relay) Emit(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	return r.Rdb.Publish(ctx, r.channel(), b).Err()
}

// Run blocks until ctx is cancelled. It returns an error if the subscription
// fails or is closed while ctx is still live.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.Rdb.Subscribe(ctx, r.channel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel(), err)
	}
	log.Info().Str("channel", r.channel()).Msg("realtime relay subscribed")

	return r.consume(ctx, sub.Channel())
}

// consume delivers messages until ctx is done. A channel closed under a live
// ctx means this instance stopped receiving events, which is an error.
func (r *Relay) consume(ctx context.Context, ch <-chan *redis.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("relay %s: subscription closed", r.channel())
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Warn().Err(err).Msg("realtime relay: bad payload")
				continue
			}
			r.Hub.Deliver(msg)
		}
	}
}
