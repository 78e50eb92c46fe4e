// Package changefeed carries "collection changed" notifications between till processes.
package changefeed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

// RedisFeed publishes change events on Redis pub/sub, one channel per collection.
type RedisFeed struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

// NewRedisFeed creates a feed whose channels are named "<prefix>:<collection>".
func NewRedisFeed(client *redis.Client, prefix string, log zerolog.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		prefix: prefix,
		log:    log.With().Str("component", "redis_feed").Logger(),
	}
}

var _ domainRepo.ChangeFeed = (*RedisFeed)(nil)

func (f *RedisFeed) channel(collection string) string {
	return f.prefix + ":" + collection
}

// Publish implements ChangeFeed.
func (f *RedisFeed) Publish(ctx context.Context, collection string) error {
	if err := f.client.Publish(ctx, f.channel(collection), collection).Err(); err != nil {
		return fmt.Errorf("publish %s change: %w", collection, err)
	}
	return nil
}

// Subscribe implements ChangeFeed. It returns after Redis confirms the subscription.
func (f *RedisFeed) Subscribe(ctx context.Context, collection string, fn func()) error {
	pubsub := f.client.Subscribe(ctx, f.channel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", collection, err)
	}

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					f.log.Warn().Str("collection", collection).Msg("subscription closed")
					return
				}
				fn()
			}
		}
	}()
	return nil
}
