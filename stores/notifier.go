package stores

import (
	"sync"
)

// Entity kinds carried by change signals.
const (
	KindChats    = "chats"    // scope key: user id
	KindMessages = "messages" // scope key: chat id
)

type changeSub struct {
	kind  string
	scope string
	ch    chan struct{}
}

// ChangeNotifier fans a content-less row-change signal out to subscribers.
// It is the in-process equivalent of a database change channel: one signal
// per committed mutation, keyed by entity kind and scope, no payload. The
// feed adapter re-fetches on signal to materialize a snapshot.
type ChangeNotifier struct {
	mu   sync.Mutex
	next int
	subs map[int]*changeSub
}

// NewChangeNotifier creates an empty notifier.
func NewChangeNotifier() *ChangeNotifier {
	return &ChangeNotifier{subs: make(map[int]*changeSub)}
}

// Subscribe registers for signals matching kind and scope. The returned
// cancel func is idempotent; once it returns, no further signal is delivered
// and the channel is closed.
func (n *ChangeNotifier) Subscribe(kind, scope string) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	sub := &changeSub{kind: kind, scope: scope, ch: make(chan struct{}, 1)}
	n.subs[id] = sub

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if s, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers a signal to every matching subscriber. Signals coalesce:
// a subscriber that has not drained its pending signal does not queue a
// second one, which is safe because the consumer re-fetches the full scope.
func (n *ChangeNotifier) Publish(kind, scope string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		if sub.kind != kind || sub.scope != scope {
			continue
		}
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}
