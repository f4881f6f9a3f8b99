// Package view keeps an always-renderable snapshot per content collection.
// A view re-fetches its whole collection on open, on every change-feed event
// for its collection, and on every dataUpdated broadcast; it never writes.
package view

import (
	"context"
	"sync"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/bus"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/feed"
)

// FetchFunc loads the full collection. Implementations degrade to an empty
// value on failure rather than returning an error, matching the gateway's
// read contract. The context is cancelled when the fetch is superseded by a
// newer one or the view closes.
type FetchFunc[T any] func(ctx context.Context) T

// View holds the latest fetched snapshot of one collection.
type View[T any] struct {
	collection string
	fetch      FetchFunc[T]
	changeFeed feed.Feed
	events     *bus.Bus
	topic      bus.Topic

	mu       sync.Mutex
	snapshot T
	loading  bool
	gen      int
	cancel   context.CancelFunc
	sub      feed.Subscription
	handle   *bus.Handle
	open     bool

	wg sync.WaitGroup
}

func New[T any](collection string, fetch FetchFunc[T], changeFeed feed.Feed, events *bus.Bus, topic bus.Topic) *View[T] {
	return &View[T]{
		collection: collection,
		fetch:      fetch,
		changeFeed: changeFeed,
		events:     events,
		topic:      topic,
	}
}

// Open performs the initial fetch and registers the two invalidation
// triggers. The initial fetch is synchronous so the first render after Open
// has data.
func (v *View[T]) Open(ctx context.Context) error {
	v.mu.Lock()
	if v.open {
		v.mu.Unlock()
		return nil
	}
	v.open = true
	v.mu.Unlock()

	v.setSnapshot(1, v.fetch(ctx))

	sub, err := v.changeFeed.Subscribe(v.collection, func(feed.Event) { v.Invalidate() })
	if err != nil {
		return err
	}
	handle := v.events.Subscribe(v.topic, v.Invalidate)

	v.mu.Lock()
	v.sub = sub
	v.handle = handle
	v.mu.Unlock()
	return nil
}

// Invalidate starts a background re-fetch, cancelling any fetch still in
// flight so a superseded response can never overwrite a newer one.
func (v *View[T]) Invalidate() {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return
	}
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.gen++
	gen := v.gen
	v.loading = true
	v.mu.Unlock()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		result := v.fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		v.setSnapshot(gen, result)
	}()
}

// setSnapshot applies a fetch result unless a newer fetch has started since.
func (v *View[T]) setSnapshot(gen int, result T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen < v.gen {
		return
	}
	if gen > v.gen {
		v.gen = gen
	}
	v.snapshot = result
	v.loading = false
}

func (v *View[T]) Snapshot() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

func (v *View[T]) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Close cancels any in-flight fetch and releases the feed subscription and
// bus handle exactly once. Safe to call more than once.
func (v *View[T]) Close() {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return
	}
	v.open = false
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	sub := v.sub
	handle := v.handle
	v.sub = nil
	v.handle = nil
	v.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	handle.Cancel()
	v.wg.Wait()
}

// Set replaces the collection of views a page needs, opened and closed as a
// unit the way components mount and unmount together.
type Set struct {
	mu    sync.Mutex
	items []interface{ Close() }
}

func (s *Set) Add(v interface{ Close() }) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, v)
}

func (s *Set) Close() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()
	for _, item := range items {
		item.Close()
	}
}
