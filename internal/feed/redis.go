package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFeed carries change events over Redis pub/sub so that every running
// instance (and every tab connected through one) observes the same stream.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

func NewRedisFeed(redisURL string) (*RedisFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisFeed{client: client, prefix: "portfolio:changes:"}, nil
}

func NewRedisFeedWithClient(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client, prefix: "portfolio:changes:"}
}

func (f *RedisFeed) channel(collection string) string {
	return f.prefix + collection
}

func (f *RedisFeed) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel(event.Collection), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(collection string, fn func(Event)) (Subscription, error) {
	pubsub := f.client.Subscribe(context.Background(), f.channel(collection))

	// Force the subscription onto the wire before returning so callers never
	// miss events published right after Subscribe.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	sub := &redisSubscription{pubsub: pubsub, done: make(chan struct{})}
	go sub.deliver(collection, fn)
	return sub, nil
}

func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) deliver(collection string, fn func(Event)) {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("feed: dropping malformed event on %s: %v", collection, err)
			continue
		}
		fn(event)
	}
}

func (s *redisSubscription) Unsubscribe() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
		<-s.done
	})
}
