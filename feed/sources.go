package feed

import (
	"fmt"

	"github.com/Desarso/chatsync/stores"
)

// NotifierSource adapts the in-process store notifier to SignalSource. This
// is the deployment where engine and database live in the same process.
type NotifierSource struct {
	Notifier *stores.ChangeNotifier
}

// Open subscribes to the notifier for the given kind and scope.
func (n *NotifierSource) Open(kind, scope string) (<-chan struct{}, func(), error) {
	if n.Notifier == nil {
		return nil, nil, fmt.Errorf("change notifier is nil")
	}
	ch, cancel := n.Notifier.Subscribe(kind, scope)
	return ch, cancel, nil
}

// StoreFetcher materializes snapshots straight from the durable store.
type StoreFetcher struct {
	Store stores.ChatStore
}

// Fetch reads the full result set for one scope.
func (f *StoreFetcher) Fetch(kind, scope string) (Snapshot, error) {
	switch kind {
	case stores.KindChats:
		chats, err := f.Store.ListChatsForUser(scope)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Kind: kind, Scope: scope, Chats: chats}, nil
	case stores.KindMessages:
		msgs, err := f.Store.FetchMessages(scope)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Kind: kind, Scope: scope, Messages: msgs}, nil
	default:
		return Snapshot{}, fmt.Errorf("unknown entity kind: %s", kind)
	}
}
