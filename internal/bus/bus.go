// Package bus is the in-process broadcast channel used to tell interested
// views that authentication state or stored content changed. It replaces the
// kind of ambient window-level events a browser app would use with an
// explicit typed publish/subscribe contract.
package bus

import (
	"sort"
	"sync"
)

type Topic string

const (
	AuthUpdated   Topic = "authUpdated"
	DataUpdated   Topic = "dataUpdated"
	ResumeUpdated Topic = "resumeUpdated"
)

// Bus fans a topic notification out to every current subscriber,
// synchronously and in subscription order.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[Topic]map[int]func()
}

func New() *Bus {
	return &Bus{subs: map[Topic]map[int]func(){}}
}

// Handle unregisters one subscription. Cancel is idempotent.
type Handle struct {
	cancel func()
	once   sync.Once
}

func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
}

func (b *Bus) Subscribe(topic Topic, fn func()) *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = map[int]func(){}
	}
	b.subs[topic][id] = fn

	return &Handle{cancel: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}}
}

// Publish invokes every subscriber registered for the topic at the time of
// the call. Callbacks run outside the bus lock so a subscriber may subscribe
// or cancel during delivery.
func (b *Bus) Publish(topic Topic) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs[topic]))
	ids := make([]int, 0, len(b.subs[topic]))
	for id := range b.subs[topic] {
		ids = append(ids, id)
	}
	// map iteration order is random; deliver in subscription order
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, b.subs[topic][id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
