package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const userChannelPrefix = "formatrack:user:"

// RedisBroker fans events out through Redis pub/sub so every API instance
// can reach its own websocket clients.
type RedisBroker struct {
	client *redis.Client
	logger zerolog.Logger
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisBroker connects to Redis and verifies the connection
func NewRedisBroker(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisBroker{client: client, logger: logger}, nil
}

// UserChannel is the Redis channel carrying events of userID
func UserChannel(userID int64) string {
	return userChannelPrefix + strconv.FormatInt(userID, 10)
}

func parseUserChannel(channel string) (int64, bool) {
	if !strings.HasPrefix(channel, userChannelPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(channel, userChannelPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Publish sends ev on the user's channel
func (b *RedisBroker) Publish(ctx context.Context, userID int64, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}
	if err := b.client.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("error publishing event to redis: %w", err)
	}
	return nil
}

// Subscribe listens on every user channel until ctx is done
func (b *RedisBroker) Subscribe(ctx context.Context, fn DeliverFunc) error {
	pubsub := b.client.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("error subscribing to redis channels: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				userID, ok := parseUserChannel(msg.Channel)
				if !ok {
					b.logger.Warn().Str("channel", msg.Channel).Msg("Ignoring message on unknown channel")
					continue
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Error().Err(err).Str("channel", msg.Channel).Msg("Failed to decode realtime event")
					continue
				}
				fn(ctx, userID, ev)
			}
		}
	}()

	b.logger.Info().Str("pattern", userChannelPrefix+"*").Msg("Subscribed to redis realtime channels")
	return nil
}

// Close closes the Redis client
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
