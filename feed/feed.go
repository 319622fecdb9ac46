// Package feed normalizes change notifications into materialized snapshots.
// Two transport shapes exist in the wild: subscriptions that re-deliver full
// result sets on every change, and content-less row-change signals. The
// adapter hides which one backs a subscription; consumers only ever see
// complete snapshots, never raw diffs.
package feed

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Desarso/chatsync/stores"
)

// Snapshot is a complete, materialized result set for one scope. Exactly one
// of Chats/Messages is populated, matching Kind.
type Snapshot struct {
	Kind     string `json:"kind"`  // stores.KindChats or stores.KindMessages
	Scope    string `json:"scope"` // user id for chats, chat id for messages
	Chats    []stores.Chat    `json:"chats,omitempty"`
	Messages []stores.Message `json:"messages,omitempty"`
}

// Event is what a subscription delivers: a snapshot, or a terminal Lost
// marker once reconnect attempts are exhausted.
type Event struct {
	Snapshot *Snapshot
	Lost     bool
}

// SnapshotSource is strategy A: the remote pushes already-materialized
// result sets. Open returns the event channel and a close func; the source
// signals transport failure by closing the channel.
type SnapshotSource interface {
	Open(kind, scope string) (<-chan Snapshot, func(), error)
}

// SignalSource is strategy B: the remote pushes a content-less change
// signal and the adapter re-fetches the scope itself.
type SignalSource interface {
	Open(kind, scope string) (<-chan struct{}, func(), error)
}

// Fetcher materializes the current result set for a scope, used by the
// signal strategy.
type Fetcher interface {
	Fetch(kind, scope string) (Snapshot, error)
}

const (
	defaultMaxAttempts = 5
	defaultRetryBase   = time.Second
	maxRetryDelay      = 30 * time.Second
)

// Adapter turns either source shape into a stream of snapshot events with
// bounded reconnect.
type Adapter struct {
	snapshots SnapshotSource
	signals   SignalSource
	fetcher   Fetcher

	Logger      *log.Logger
	MaxAttempts int           // reconnect attempts before giving up
	RetryBase   time.Duration // first backoff delay, doubled per attempt
}

// NewSnapshotAdapter builds an adapter over a snapshot-pushing transport.
func NewSnapshotAdapter(src SnapshotSource) *Adapter {
	return &Adapter{
		snapshots:   src,
		Logger:      log.New(os.Stdout, "[feed] ", log.LstdFlags),
		MaxAttempts: defaultMaxAttempts,
		RetryBase:   defaultRetryBase,
	}
}

// NewSignalAdapter builds an adapter over a row-change signal transport,
// re-fetching through the given fetcher to materialize snapshots.
func NewSignalAdapter(src SignalSource, fetcher Fetcher) *Adapter {
	return &Adapter{
		signals:     src,
		fetcher:     fetcher,
		Logger:      log.New(os.Stdout, "[feed] ", log.LstdFlags),
		MaxAttempts: defaultMaxAttempts,
		RetryBase:   defaultRetryBase,
	}
}

// Subscription is one live feed for a scope. Events() delivers snapshots
// until Unsubscribe is called or the feed is lost.
type Subscription struct {
	events chan Event
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Events returns the event stream.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe tears the subscription down. It is idempotent, and once it
// returns no further event is delivered: the pump goroutine has exited and
// the events channel is unbuffered.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// Subscribe opens a feed for one scope and starts its pump.
func (a *Adapter) Subscribe(kind, scope string) *Subscription {
	sub := &Subscription{
		events: make(chan Event),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.pump(kind, scope, sub)
	return sub
}

// emit delivers an event unless the subscription is being torn down.
func (s *Subscription) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.stop:
		return false
	}
}

// sleep waits for the backoff delay, aborting early on teardown.
func (s *Subscription) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	}
}

func (a *Adapter) pump(kind, scope string, sub *Subscription) {
	// The pump is the only sender; closing events here lets consumers range
	// over the stream.
	defer func() {
		close(sub.events)
		close(sub.done)
	}()

	attempt := 0
	delay := a.RetryBase

	for {
		var err error
		if a.snapshots != nil {
			err = a.runSnapshotSession(kind, scope, sub)
		} else {
			err = a.runSignalSession(kind, scope, sub)
		}
		if err == nil {
			// Clean teardown via Unsubscribe.
			return
		}

		attempt++
		if attempt >= a.MaxAttempts {
			a.Logger.Printf("feed %s/%s lost after %d attempts: %v", kind, scope, attempt, err)
			sub.emit(Event{Lost: true})
			return
		}

		a.Logger.Printf("feed %s/%s dropped (attempt %d/%d), retrying in %v: %v",
			kind, scope, attempt, a.MaxAttempts, delay, err)
		if !sub.sleep(delay) {
			return
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// runSnapshotSession forwards pushed snapshots until teardown (nil) or
// transport failure (error).
func (a *Adapter) runSnapshotSession(kind, scope string, sub *Subscription) error {
	ch, closeSource, err := a.snapshots.Open(kind, scope)
	if err != nil {
		return fmt.Errorf("failed to open snapshot source: %w", err)
	}
	defer closeSource()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return fmt.Errorf("snapshot source closed")
			}
			if !sub.emit(Event{Snapshot: &snap}) {
				return nil
			}
		case <-sub.stop:
			return nil
		}
	}
}

// runSignalSession emits one snapshot up front, then re-fetches on every
// change signal until teardown (nil) or transport failure (error).
func (a *Adapter) runSignalSession(kind, scope string, sub *Subscription) error {
	ch, closeSource, err := a.signals.Open(kind, scope)
	if err != nil {
		return fmt.Errorf("failed to open signal source: %w", err)
	}
	defer closeSource()

	// Initial load: the consumer needs the current state before the first
	// change arrives.
	if ok, err := a.refetch(kind, scope, sub); err != nil {
		return err
	} else if !ok {
		return nil
	}

	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return fmt.Errorf("signal source closed")
			}
			if ok, err := a.refetch(kind, scope, sub); err != nil {
				return err
			} else if !ok {
				return nil
			}
		case <-sub.stop:
			return nil
		}
	}
}

func (a *Adapter) refetch(kind, scope string, sub *Subscription) (bool, error) {
	snap, err := a.fetcher.Fetch(kind, scope)
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s/%s: %w", kind, scope, err)
	}
	return sub.emit(Event{Snapshot: &snap}), nil
}
