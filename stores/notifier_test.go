package stores

import (
	"testing"
)

func TestChangeNotifier_DeliversToMatchingScope(t *testing.T) {
	n := NewChangeNotifier()
	ch, cancel := n.Subscribe(KindMessages, "chat-1")
	defer cancel()

	n.Publish(KindMessages, "chat-1")
	select {
	case <-ch:
	default:
		t.Errorf("Expected a signal for the matching scope")
	}
}

func TestChangeNotifier_IgnoresOtherScopesAndKinds(t *testing.T) {
	n := NewChangeNotifier()
	ch, cancel := n.Subscribe(KindMessages, "chat-1")
	defer cancel()

	n.Publish(KindMessages, "chat-2")
	n.Publish(KindChats, "chat-1")
	select {
	case <-ch:
		t.Errorf("Expected no signal for non-matching publishes")
	default:
	}
}

func TestChangeNotifier_SignalsCoalesce(t *testing.T) {
	n := NewChangeNotifier()
	ch, cancel := n.Subscribe(KindChats, "user-1")
	defer cancel()

	n.Publish(KindChats, "user-1")
	n.Publish(KindChats, "user-1")
	n.Publish(KindChats, "user-1")

	<-ch
	select {
	case <-ch:
		t.Errorf("Expected undrained signals to coalesce into one")
	default:
	}
}

func TestChangeNotifier_CancelClosesChannelAndIsIdempotent(t *testing.T) {
	n := NewChangeNotifier()
	ch, cancel := n.Subscribe(KindMessages, "chat-1")

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Errorf("Expected the channel closed after cancel")
	}

	// Publishing after cancel must not panic or deliver.
	n.Publish(KindMessages, "chat-1")
}

func TestChangeNotifier_NilReceiverPublishIsSafe(t *testing.T) {
	var n *ChangeNotifier
	n.Publish(KindMessages, "chat-1")
}
