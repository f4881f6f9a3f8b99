package feed

import (
	"context"
	"sync"
)

// MemoryFeed is a single-process feed used in tests and in deployments
// without Redis. Delivery is synchronous with Publish.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(Event)
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: map[string]map[int]func(Event){}}
}

func (f *MemoryFeed) Publish(_ context.Context, event Event) error {
	f.mu.Lock()
	fns := make([]func(Event), 0, len(f.subs[event.Collection]))
	for _, fn := range f.subs[event.Collection] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
	return nil
}

func (f *MemoryFeed) Subscribe(collection string, fn func(Event)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	if f.subs[collection] == nil {
		f.subs[collection] = map[int]func(Event){}
	}
	f.subs[collection][id] = fn

	return &memorySubscription{feed: f, collection: collection, id: id}, nil
}

type memorySubscription struct {
	feed       *MemoryFeed
	collection string
	id         int
	once       sync.Once
}

func (s *memorySubscription) Unsubscribe() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		delete(s.feed.subs[s.collection], s.id)
	})
}
