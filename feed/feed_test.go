package feed

import (
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/Desarso/chatsync/stores"
)

// fakeSignalSource hands out signal channels the test controls directly.
type fakeSignalSource struct {
	mu      sync.Mutex
	ch      chan struct{}
	opens   int
	failAll bool
	closed  int
}

func (f *fakeSignalSource) Open(kind, scope string) (<-chan struct{}, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.failAll {
		return nil, nil, fmt.Errorf("transport unavailable")
	}
	f.ch = make(chan struct{}, 4)
	return f.ch, func() {
		f.mu.Lock()
		f.closed++
		f.mu.Unlock()
	}, nil
}

func (f *fakeSignalSource) signal() {
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	ch <- struct{}{}
}

func (f *fakeSignalSource) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// fakeFetcher returns a snapshot whose scope carries a fetch counter so the
// test can tell deliveries apart.
type fakeFetcher struct {
	mu      sync.Mutex
	fetches int
}

func (f *fakeFetcher) Fetch(kind, scope string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return Snapshot{
		Kind:  kind,
		Scope: scope,
		Messages: []stores.Message{
			{ID: fmt.Sprintf("fetch-%d", f.fetches), ChatID: scope},
		},
	}, nil
}

func quietAdapter(a *Adapter) *Adapter {
	a.Logger = log.New(io.Discard, "", 0)
	return a
}

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatalf("Events channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for an event")
		return Event{}
	}
}

func TestSignalAdapter_InitialSnapshotThenRefetchPerSignal(t *testing.T) {
	src := &fakeSignalSource{}
	fetcher := &fakeFetcher{}
	adapter := quietAdapter(NewSignalAdapter(src, fetcher))

	sub := adapter.Subscribe(stores.KindMessages, "chat-1")
	defer sub.Unsubscribe()

	first := recvEvent(t, sub)
	if first.Lost || first.Snapshot == nil {
		t.Fatalf("Expected an initial snapshot, got %+v", first)
	}
	if first.Snapshot.Messages[0].ID != "fetch-1" {
		t.Errorf("Expected the initial fetch, got %s", first.Snapshot.Messages[0].ID)
	}

	src.signal()
	second := recvEvent(t, sub)
	if second.Snapshot == nil || second.Snapshot.Messages[0].ID != "fetch-2" {
		t.Errorf("Expected a refetched snapshot after the signal, got %+v", second)
	}

	src.signal()
	third := recvEvent(t, sub)
	if third.Snapshot == nil || third.Snapshot.Messages[0].ID != "fetch-3" {
		t.Errorf("Expected one refetch per signal, got %+v", third)
	}
}

func TestSubscription_UnsubscribeStopsDelivery(t *testing.T) {
	src := &fakeSignalSource{}
	fetcher := &fakeFetcher{}
	adapter := quietAdapter(NewSignalAdapter(src, fetcher))

	sub := adapter.Subscribe(stores.KindMessages, "chat-1")
	recvEvent(t, sub)

	sub.Unsubscribe()

	// Once Unsubscribe returns the pump has exited and the stream is closed.
	select {
	case ev, ok := <-sub.Events():
		if ok {
			t.Errorf("Expected no event after unsubscribe, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Errorf("Expected the events channel to be closed")
	}

	src.mu.Lock()
	closed := src.closed
	src.mu.Unlock()
	if closed != 1 {
		t.Errorf("Expected the source closed exactly once, got %d", closed)
	}
}

func TestSubscription_UnsubscribeIsIdempotent(t *testing.T) {
	src := &fakeSignalSource{}
	adapter := quietAdapter(NewSignalAdapter(src, &fakeFetcher{}))

	sub := adapter.Subscribe(stores.KindMessages, "chat-1")
	recvEvent(t, sub)

	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestSignalAdapter_LostAfterExhaustedRetries(t *testing.T) {
	src := &fakeSignalSource{failAll: true}
	adapter := quietAdapter(NewSignalAdapter(src, &fakeFetcher{}))
	adapter.MaxAttempts = 3
	adapter.RetryBase = time.Millisecond

	sub := adapter.Subscribe(stores.KindMessages, "chat-1")
	defer sub.Unsubscribe()

	ev := recvEvent(t, sub)
	if !ev.Lost {
		t.Fatalf("Expected a Lost event, got %+v", ev)
	}
	if src.openCount() != 3 {
		t.Errorf("Expected 3 open attempts before giving up, got %d", src.openCount())
	}

	// Lost is terminal; the stream closes after it.
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Errorf("Expected the stream closed after Lost")
		}
	case <-time.After(time.Second):
		t.Errorf("Expected the events channel to be closed after Lost")
	}
}

// fakeSnapshotSource pushes pre-materialized snapshots.
type fakeSnapshotSource struct {
	mu sync.Mutex
	ch chan Snapshot
}

func (f *fakeSnapshotSource) Open(kind, scope string) (<-chan Snapshot, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = make(chan Snapshot, 4)
	return f.ch, func() {}, nil
}

func (f *fakeSnapshotSource) push(snap Snapshot) {
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	ch <- snap
}

func TestSnapshotAdapter_ForwardsPushedSnapshots(t *testing.T) {
	src := &fakeSnapshotSource{}
	adapter := quietAdapter(NewSnapshotAdapter(src))

	sub := adapter.Subscribe(stores.KindChats, "user-1")
	defer sub.Unsubscribe()

	// Let the pump open the source before pushing.
	deadline := time.Now().Add(time.Second)
	for {
		src.mu.Lock()
		ready := src.ch != nil
		src.mu.Unlock()
		if ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for the source to open")
		}
		time.Sleep(time.Millisecond)
	}

	src.push(Snapshot{Kind: stores.KindChats, Scope: "user-1", Chats: []stores.Chat{{ID: "c1"}}})
	ev := recvEvent(t, sub)
	if ev.Snapshot == nil || len(ev.Snapshot.Chats) != 1 || ev.Snapshot.Chats[0].ID != "c1" {
		t.Errorf("Expected the pushed snapshot forwarded, got %+v", ev)
	}
}
