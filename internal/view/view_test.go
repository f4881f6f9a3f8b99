package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/bus"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/feed"
)

// blockingFetch lets tests decide when each fetch call returns and with
// which value.
type blockingFetch struct {
	mu      sync.Mutex
	calls   int
	pending []chan []string
	ctxs    []context.Context
}

func (b *blockingFetch) fetch(ctx context.Context) []string {
	b.mu.Lock()
	b.calls++
	release := make(chan []string, 1)
	b.pending = append(b.pending, release)
	b.ctxs = append(b.ctxs, ctx)
	b.mu.Unlock()

	select {
	case result := <-release:
		return result
	case <-ctx.Done():
		return nil
	}
}

func (b *blockingFetch) release(call int, result []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[call] <- result
}

func (b *blockingFetch) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *blockingFetch) ctx(call int) context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctxs[call]
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestOpenFetchesOnce(t *testing.T) {
	calls := 0
	v := New("experiences", func(context.Context) []string {
		calls++
		return []string{"a", "b"}
	}, feed.NewMemoryFeed(), bus.New(), bus.DataUpdated)

	if err := v.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer v.Close()

	if calls != 1 {
		t.Fatalf("expected one initial fetch, got %d", calls)
	}
	if got := v.Snapshot(); len(got) != 2 {
		t.Fatalf("expected initial snapshot, got %v", got)
	}
}

func TestFeedEventTriggersRefetch(t *testing.T) {
	changeFeed := feed.NewMemoryFeed()
	var mu sync.Mutex
	calls := 0
	v := New("skills", func(context.Context) []string {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return []string{"updated"}
	}, changeFeed, bus.New(), bus.DataUpdated)

	if err := v.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer v.Close()

	if err := changeFeed.Publish(context.Background(), feed.Event{Collection: "skills", Kind: feed.Update}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	})
	waitFor(t, func() bool { return !v.Loading() })
	if got := v.Snapshot(); len(got) != 1 || got[0] != "updated" {
		t.Fatalf("expected refreshed snapshot, got %v", got)
	}
}

func TestBroadcastTriggersRefetch(t *testing.T) {
	events := bus.New()
	var mu sync.Mutex
	calls := 0
	v := New("projects", func(context.Context) []string {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	}, feed.NewMemoryFeed(), events, bus.DataUpdated)

	if err := v.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer v.Close()

	events.Publish(bus.DataUpdated)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	})
}

func TestSupersededFetchIsCancelledAndCannotOverwrite(t *testing.T) {
	bf := &blockingFetch{}
	v := New("competitions", bf.fetch, feed.NewMemoryFeed(), bus.New(), bus.DataUpdated)

	// open with an immediate first result
	done := make(chan error, 1)
	go func() { done <- v.Open(context.Background()) }()
	waitFor(t, func() bool { return bf.callCount() == 1 })
	bf.release(0, []string{"initial"})
	if err := <-done; err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer v.Close()

	// two triggers in quick succession: the first fetch is superseded
	v.Invalidate()
	waitFor(t, func() bool { return bf.callCount() == 2 })
	v.Invalidate()
	waitFor(t, func() bool { return bf.callCount() == 3 })

	if bf.ctx(1).Err() == nil {
		t.Fatal("expected the superseded fetch context to be cancelled")
	}

	// the newer fetch resolves; the older one already returned nil via
	// cancellation and must not have replaced anything
	bf.release(2, []string{"newest"})
	waitFor(t, func() bool { return !v.Loading() })

	if got := v.Snapshot(); len(got) != 1 || got[0] != "newest" {
		t.Fatalf("expected newest result to win, got %v", got)
	}
}

func TestLastResolvedValueWinsAcrossSequentialTriggers(t *testing.T) {
	// Two triggers where each fetch completes before the next starts: the
	// snapshot always reflects the response that resolved last, which is the
	// documented contract rather than any stronger ordering guarantee.
	bf := &blockingFetch{}
	v := New("about", bf.fetch, feed.NewMemoryFeed(), bus.New(), bus.DataUpdated)

	done := make(chan error, 1)
	go func() { done <- v.Open(context.Background()) }()
	waitFor(t, func() bool { return bf.callCount() == 1 })
	bf.release(0, []string{"from-feed-event"})
	if err := <-done; err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer v.Close()

	v.Invalidate()
	waitFor(t, func() bool { return bf.callCount() == 2 })
	bf.release(1, []string{"from-manual-save"})
	waitFor(t, func() bool { return !v.Loading() })

	if got := v.Snapshot(); got[0] != "from-manual-save" {
		t.Fatalf("expected the last resolved response rendered, got %v", got)
	}
}

func TestLoadingFlagDuringFetch(t *testing.T) {
	bf := &blockingFetch{}
	v := New("resumes", bf.fetch, feed.NewMemoryFeed(), bus.New(), bus.ResumeUpdated)

	done := make(chan error, 1)
	go func() { done <- v.Open(context.Background()) }()
	waitFor(t, func() bool { return bf.callCount() == 1 })
	bf.release(0, nil)
	if err := <-done; err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer v.Close()

	v.Invalidate()
	waitFor(t, func() bool { return v.Loading() })
	bf.release(1, []string{"done"})
	waitFor(t, func() bool { return !v.Loading() })
}

func TestCloseReleasesSubscriptionsExactlyOnce(t *testing.T) {
	changeFeed := feed.NewMemoryFeed()
	events := bus.New()
	var mu sync.Mutex
	calls := 0
	v := New("experiences", func(context.Context) []string {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	}, changeFeed, events, bus.DataUpdated)

	if err := v.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	v.Close()
	v.Close() // second close must be harmless

	if err := changeFeed.Publish(context.Background(), feed.Event{Collection: "experiences", Kind: feed.Insert}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	events.Publish(bus.DataUpdated)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected no fetches after close, got %d", calls)
	}
}

func TestSetClosesAllViews(t *testing.T) {
	changeFeed := feed.NewMemoryFeed()
	events := bus.New()

	var set Set
	var views []*View[[]string]
	for _, name := range []string{"experiences", "skills", "projects"} {
		v := New(name, func(context.Context) []string { return nil }, changeFeed, events, bus.DataUpdated)
		if err := v.Open(context.Background()); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		set.Add(v)
		views = append(views, v)
	}

	set.Close()

	for _, v := range views {
		if v.Loading() {
			t.Fatal("no view should be loading after close")
		}
		v.Close() // must remain harmless
	}
}
