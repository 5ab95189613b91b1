package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/logger"
)

const defaultPrefix = "realtime:"

// RedisBroker publishes change events over Redis pub/sub so that events raised
// by any process reach the websocket subscribers of every API instance.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	prefix string
	log    zerolog.Logger
}

// NewRedisBroker relays events between Redis and the local hub.
func NewRedisBroker(client *redis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{client: client, hub: hub, prefix: defaultPrefix, log: logger.Component("realtime")}
}

// Publish sends evt to the table channel.
func (b *RedisBroker) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.prefix+evt.Table, data).Err()
}

// Run relays every table channel into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, b.prefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	b.log.Info().Str("pattern", b.prefix+"*").Msg("relaying realtime events")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
				continue
			}
			if evt.Table == "" {
				evt.Table = strings.TrimPrefix(msg.Channel, b.prefix)
			}
			_ = b.hub.Publish(ctx, evt)
		}
	}
}
