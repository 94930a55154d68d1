package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// envelope is the Redis payload: the target channel plus the encoded frame.
type envelope struct {
	Channel string          `json:"channel"`
	Frame   json.RawMessage `json:"frame"`
}

// RedisPublisher fans messages out through Redis pub/sub so every instance
// delivers to its own local connections.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  zerolog.Logger
}

// NewRedisPublisher parses url (redis://...) and returns a publisher bound to hub.
func NewRedisPublisher(url, channel string, hub *Hub, logger zerolog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return &RedisPublisher{
		client:  redis.NewClient(opts),
		channel: channel,
		hub:     hub,
		logger:  logger,
	}, nil
}

// Publish sends msg to all instances, including this one.
func (p *RedisPublisher) Publish(ctx context.Context, channelID string, msg Message) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope{Channel: channelID, Frame: frame})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Run delivers messages received from Redis to the local hub until ctx is done.
func (p *RedisPublisher) Run(ctx context.Context) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			p.handle(m.Payload)
		}
	}
}

func (p *RedisPublisher) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		p.logger.Warn().Err(err).Msg("dropping malformed realtime payload")
		return
	}
	p.hub.deliver(env.Channel, env.Frame)
}

// Ping checks the connection at startup.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
