// Package state holds the client-side view of a user's chats: the chat
// list, the active chat and its messages, and the per-chat assistant-busy
// flags. It is the single owner of that data; everything else mutates it
// through the entry points below, which serialize against each other.
package state

import (
	"sort"
	"sync"

	"github.com/Desarso/chatsync/stores"
)

// SessionState is the in-memory source of truth for one client instance.
type SessionState struct {
	mu           sync.Mutex
	chats        []stores.Chat
	activeChatID string
	messages     []stores.Message
	busy         map[string]bool // chat id -> exchange in flight past the user write
	onChange     func()
}

// New creates an empty session state.
func New() *SessionState {
	return &SessionState{busy: make(map[string]bool)}
}

// OnChange registers a callback invoked after every mutation, outside the
// state lock. Used as the re-render signal.
func (s *SessionState) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *SessionState) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetActiveChat switches the active chat. Stale messages are cleared
// synchronously, before any snapshot for the new chat can arrive, so a late
// snapshot for the previous chat has nothing to overwrite.
func (s *SessionState) SetActiveChat(chatID string) {
	s.mu.Lock()
	if s.activeChatID == chatID {
		s.mu.Unlock()
		return
	}
	s.activeChatID = chatID
	s.messages = nil
	s.mu.Unlock()
	s.notify()
}

// ApplyChatsSnapshot replaces the chat list wholesale.
func (s *SessionState) ApplyChatsSnapshot(chats []stores.Chat) {
	sorted := make([]stores.Chat, len(chats))
	copy(sorted, chats)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	s.mu.Lock()
	s.chats = sorted
	s.mu.Unlock()
	s.notify()
}

// ApplyMessagesSnapshot merges a snapshot into the active chat's messages.
// The chat id is compared against the active chat at apply time, not at the
// time the fetch started; snapshots for any other chat are dropped.
func (s *SessionState) ApplyMessagesSnapshot(chatID string, msgs []stores.Message) {
	s.mu.Lock()
	if chatID != s.activeChatID {
		s.mu.Unlock()
		return
	}
	s.messages = MergeMessages(s.messages, msgs)
	s.mu.Unlock()
	s.notify()
}

// AppendOptimisticMessage inserts a locally created entry ahead of remote
// confirmation. Entries for a chat that is no longer active are dropped.
func (s *SessionState) AppendOptimisticMessage(msg stores.Message) {
	s.mu.Lock()
	if msg.ChatID != s.activeChatID {
		s.mu.Unlock()
		return
	}
	s.messages = MergeMessages(s.messages, []stores.Message{msg})
	s.mu.Unlock()
	s.notify()
}

// DropOptimisticMessage removes a pending entry whose write was rejected.
// Confirmed entries are never removed this way.
func (s *SessionState) DropOptimisticMessage(chatID, msgID string) {
	s.mu.Lock()
	if chatID != s.activeChatID {
		s.mu.Unlock()
		return
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ID != msgID || !m.Pending {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	s.mu.Unlock()
	s.notify()
}

// SetAssistantBusy flips the busy flag for the chat an exchange runs
// against. Busy is scoped to that chat, not to whatever chat is active when
// the exchange resolves.
func (s *SessionState) SetAssistantBusy(chatID string, busy bool) {
	s.mu.Lock()
	if busy {
		s.busy[chatID] = true
	} else {
		delete(s.busy, chatID)
	}
	s.mu.Unlock()
	s.notify()
}

// RemoveChat drops a chat from local state after the remote delete has been
// acknowledged. If it was the active chat, the active view is cleared too.
func (s *SessionState) RemoveChat(chatID string) {
	s.mu.Lock()
	kept := s.chats[:0]
	for _, c := range s.chats {
		if c.ID != chatID {
			kept = append(kept, c)
		}
	}
	s.chats = kept
	delete(s.busy, chatID)
	if s.activeChatID == chatID {
		s.activeChatID = ""
		s.messages = nil
	}
	s.mu.Unlock()
	s.notify()
}

// Reset clears everything, used on sign-out or when the current user changes.
func (s *SessionState) Reset() {
	s.mu.Lock()
	s.chats = nil
	s.activeChatID = ""
	s.messages = nil
	s.busy = make(map[string]bool)
	s.mu.Unlock()
	s.notify()
}

// Chats returns a copy of the chat list, most recently updated first.
func (s *SessionState) Chats() []stores.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]stores.Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

// ActiveChatID returns the active chat id, or "" when none is selected.
func (s *SessionState) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChatID
}

// Messages returns a copy of the active chat's message sequence.
func (s *SessionState) Messages() []stores.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]stores.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AssistantBusy reports whether an exchange is in flight for the active chat.
func (s *SessionState) AssistantBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[s.activeChatID]
}

// AssistantBusyFor reports the busy flag for a specific chat.
func (s *SessionState) AssistantBusyFor(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[chatID]
}
