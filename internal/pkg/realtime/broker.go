package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Publisher sends an event to one user wherever the user is connected
type Publisher interface {
	Publish(ctx context.Context, userID int64, ev Event) error
}

// DeliverFunc receives events published through a Broker
type DeliverFunc func(ctx context.Context, userID int64, ev Event)

// Broker fans published events out to every subscribed hub
type Broker interface {
	Publisher
	// Subscribe calls fn for every event until ctx is done
	Subscribe(ctx context.Context, fn DeliverFunc) error
	Close() error
}

// LocalBroker delivers events within this process only
type LocalBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]DeliverFunc
	logger zerolog.Logger
}

// NewLocalBroker creates an in-process broker
func NewLocalBroker(logger zerolog.Logger) *LocalBroker {
	return &LocalBroker{
		subs:   make(map[int]DeliverFunc),
		logger: logger,
	}
}

// Publish calls every subscriber synchronously
func (b *LocalBroker) Publish(ctx context.Context, userID int64, ev Event) error {
	b.mu.RLock()
	subs := make([]DeliverFunc, 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, userID, ev)
	}
	return nil
}

// Subscribe registers fn until ctx is done
func (b *LocalBroker) Subscribe(ctx context.Context, fn DeliverFunc) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

// Close drops every subscriber
func (b *LocalBroker) Close() error {
	b.mu.Lock()
	b.subs = make(map[int]DeliverFunc)
	b.mu.Unlock()
	return nil
}

// HubDeliverer adapts a hub to a DeliverFunc
func HubDeliverer(hub *Hub, logger zerolog.Logger) DeliverFunc {
	return func(ctx context.Context, userID int64, ev Event) {
		if err := hub.SendToUser(ctx, userID, ev); err != nil {
			logger.Warn().Err(err).Int64("userID", userID).Str("type", ev.Type).Msg("Failed to deliver realtime event")
		}
	}
}
