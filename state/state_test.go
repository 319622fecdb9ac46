package state

import (
	"testing"
	"time"

	"github.com/Desarso/chatsync/stores"
)

var stateBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSetActiveChat_ClearsMessagesSynchronously(t *testing.T) {
	s := New()
	s.SetActiveChat("a")
	s.ApplyMessagesSnapshot("a", []stores.Message{
		msg("1", "a", stores.RoleUser, "in chat a", stateBase, false),
	})

	s.SetActiveChat("b")
	if got := s.Messages(); len(got) != 0 {
		t.Errorf("Expected messages cleared on switch, got %d", len(got))
	}
}

func TestApplyMessagesSnapshot_LateSnapshotForPreviousChatDropped(t *testing.T) {
	s := New()
	s.SetActiveChat("a")
	s.SetActiveChat("b")

	// A fetch started while chat a was active resolves after the switch.
	s.ApplyMessagesSnapshot("a", []stores.Message{
		msg("1", "a", stores.RoleUser, "stale", stateBase, false),
	})
	if got := s.Messages(); len(got) != 0 {
		t.Errorf("Expected late snapshot for previous chat to be dropped, got %d messages", len(got))
	}

	s.ApplyMessagesSnapshot("b", []stores.Message{
		msg("2", "b", stores.RoleUser, "current", stateBase, false),
	})
	got := s.Messages()
	if len(got) != 1 || got[0].ChatID != "b" {
		t.Errorf("Expected only chat b messages, got %+v", got)
	}
}

func TestSetActiveChat_SameChatIsNoOp(t *testing.T) {
	s := New()
	s.SetActiveChat("a")
	s.ApplyMessagesSnapshot("a", []stores.Message{
		msg("1", "a", stores.RoleUser, "kept", stateBase, false),
	})

	s.SetActiveChat("a")
	if got := s.Messages(); len(got) != 1 {
		t.Errorf("Expected re-selecting the active chat to keep messages, got %d", len(got))
	}
}

func TestApplyChatsSnapshot_SortedByUpdatedAtDesc(t *testing.T) {
	s := New()
	s.ApplyChatsSnapshot([]stores.Chat{
		{ID: "old", UpdatedAt: stateBase},
		{ID: "new", UpdatedAt: stateBase.Add(time.Hour)},
		{ID: "mid", UpdatedAt: stateBase.Add(time.Minute)},
	})
	chats := s.Chats()
	if len(chats) != 3 {
		t.Fatalf("Expected 3 chats, got %d", len(chats))
	}
	if chats[0].ID != "new" || chats[1].ID != "mid" || chats[2].ID != "old" {
		t.Errorf("Expected [new mid old], got [%s %s %s]", chats[0].ID, chats[1].ID, chats[2].ID)
	}
}

func TestAppendOptimisticMessage_DroppedForInactiveChat(t *testing.T) {
	s := New()
	s.SetActiveChat("a")
	s.AppendOptimisticMessage(msg("local-1", "b", stores.RoleUser, "wrong chat", stateBase, true))
	if got := s.Messages(); len(got) != 0 {
		t.Errorf("Expected optimistic entry for inactive chat to be dropped, got %d", len(got))
	}
}

func TestDropOptimisticMessage_RemovesOnlyPendingEntries(t *testing.T) {
	s := New()
	s.SetActiveChat("a")
	s.ApplyMessagesSnapshot("a", []stores.Message{
		msg("1", "a", stores.RoleUser, "confirmed", stateBase, false),
	})
	s.AppendOptimisticMessage(msg("local-1", "a", stores.RoleUser, "rejected write", stateBase.Add(time.Second), true))

	s.DropOptimisticMessage("a", "local-1")
	got := s.Messages()
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("Expected only the confirmed message to remain, got %+v", got)
	}

	// Confirmed rows are not removable through this path.
	s.DropOptimisticMessage("a", "1")
	if got := s.Messages(); len(got) != 1 {
		t.Errorf("Expected confirmed message untouched, got %d messages", len(got))
	}
}

func TestSetAssistantBusy_ScopedToChat(t *testing.T) {
	s := New()
	s.SetActiveChat("a")
	s.SetAssistantBusy("a", true)

	if !s.AssistantBusy() {
		t.Errorf("Expected active chat to report busy")
	}

	// The user navigates away while the exchange is still running.
	s.SetActiveChat("b")
	if s.AssistantBusy() {
		t.Errorf("Expected chat b not to report busy")
	}
	if !s.AssistantBusyFor("a") {
		t.Errorf("Expected chat a to stay busy while its exchange runs")
	}

	s.SetAssistantBusy("a", false)
	if s.AssistantBusyFor("a") {
		t.Errorf("Expected chat a busy flag cleared")
	}
}

func TestRemoveChat_ClearsActiveViewAndBusy(t *testing.T) {
	s := New()
	s.ApplyChatsSnapshot([]stores.Chat{
		{ID: "a", UpdatedAt: stateBase},
		{ID: "b", UpdatedAt: stateBase.Add(time.Minute)},
	})
	s.SetActiveChat("a")
	s.ApplyMessagesSnapshot("a", []stores.Message{
		msg("1", "a", stores.RoleUser, "hello", stateBase, false),
	})
	s.SetAssistantBusy("a", true)

	s.RemoveChat("a")

	if got := s.Chats(); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("Expected only chat b to remain, got %+v", got)
	}
	if s.ActiveChatID() != "" {
		t.Errorf("Expected active chat cleared, got %q", s.ActiveChatID())
	}
	if got := s.Messages(); len(got) != 0 {
		t.Errorf("Expected messages cleared, got %d", len(got))
	}
	if s.AssistantBusyFor("a") {
		t.Errorf("Expected busy flag for deleted chat cleared")
	}
}

func TestRemoveChat_InactiveChatLeavesViewAlone(t *testing.T) {
	s := New()
	s.ApplyChatsSnapshot([]stores.Chat{
		{ID: "a", UpdatedAt: stateBase},
		{ID: "b", UpdatedAt: stateBase.Add(time.Minute)},
	})
	s.SetActiveChat("a")
	s.ApplyMessagesSnapshot("a", []stores.Message{
		msg("1", "a", stores.RoleUser, "hello", stateBase, false),
	})

	s.RemoveChat("b")
	if s.ActiveChatID() != "a" {
		t.Errorf("Expected active chat unchanged, got %q", s.ActiveChatID())
	}
	if got := s.Messages(); len(got) != 1 {
		t.Errorf("Expected active messages untouched, got %d", len(got))
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	s := New()
	s.ApplyChatsSnapshot([]stores.Chat{{ID: "a", UpdatedAt: stateBase}})
	s.SetActiveChat("a")
	s.ApplyMessagesSnapshot("a", []stores.Message{
		msg("1", "a", stores.RoleUser, "hello", stateBase, false),
	})
	s.SetAssistantBusy("a", true)

	s.Reset()

	if len(s.Chats()) != 0 || s.ActiveChatID() != "" || len(s.Messages()) != 0 {
		t.Errorf("Expected empty state after reset")
	}
	if s.AssistantBusyFor("a") {
		t.Errorf("Expected busy flags cleared after reset")
	}
}

func TestOnChange_FiresAfterMutations(t *testing.T) {
	s := New()
	fired := 0
	s.OnChange(func() { fired++ })

	s.SetActiveChat("a")
	s.ApplyMessagesSnapshot("a", []stores.Message{
		msg("1", "a", stores.RoleUser, "hello", stateBase, false),
	})
	if fired != 2 {
		t.Errorf("Expected 2 change notifications, got %d", fired)
	}

	// Re-selecting the active chat is a no-op and must not notify.
	s.SetActiveChat("a")
	if fired != 2 {
		t.Errorf("Expected no notification for no-op switch, got %d", fired)
	}
}
