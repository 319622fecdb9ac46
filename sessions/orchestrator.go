package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/Desarso/chatsync/auth"
	"github.com/Desarso/chatsync/feed"
	"github.com/Desarso/chatsync/stores"
	"github.com/google/uuid"
)

// Start resolves the current user, scopes the session to them and begins
// consuming the chat-list feed. It also registers for identity changes:
// a sign-out or user switch tears subscriptions down and resets state.
func (s *ChatSession) Start() error {
	user, err := s.Auth.Current()
	if err != nil {
		return chatError(KindAuthRequired, "sign-in required", err)
	}
	s.setUser(user)
	s.Auth.OnChange(s.setUser)
	return nil
}

// Close releases the feed subscriptions. Safe to call more than once.
func (s *ChatSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.teardownSubs()
}

func (s *ChatSession) setUser(user auth.User) {
	s.teardownSubs()
	s.State.Reset()

	s.mu.Lock()
	s.userID = user.ID
	closed := s.closed
	s.mu.Unlock()

	if user.ID == "" || closed || s.Feed == nil {
		return
	}

	sub := s.Feed.Subscribe(stores.KindChats, user.ID)
	s.mu.Lock()
	s.chatsSub = sub
	s.mu.Unlock()
	go s.consume(sub)
}

func (s *ChatSession) teardownSubs() {
	s.mu.Lock()
	chats, msgs := s.chatsSub, s.messagesSub
	s.chatsSub, s.messagesSub = nil, nil
	s.mu.Unlock()

	if chats != nil {
		chats.Unsubscribe()
	}
	if msgs != nil {
		msgs.Unsubscribe()
	}
}

// SetActiveChat switches the active chat: state clears the stale message
// view synchronously, the old message subscription is released and a new
// one opened for the selected chat. Pass "" to deselect.
func (s *ChatSession) SetActiveChat(chatID string) {
	s.State.SetActiveChat(chatID)
	s.swapMessagesSub(chatID)
}

// swapMessagesSub replaces the per-chat message subscription, the one
// long-lived resource tied to the active chat.
func (s *ChatSession) swapMessagesSub(chatID string) {
	var sub *feed.Subscription

	s.mu.Lock()
	old := s.messagesSub
	if s.Feed != nil && chatID != "" && !s.closed {
		sub = s.Feed.Subscribe(stores.KindMessages, chatID)
	}
	s.messagesSub = sub
	s.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	if sub != nil {
		go s.consume(sub)
	}
}

// consume applies feed events to state. Snapshots carry their own scope, and
// the state store compares that scope against the active chat at apply time,
// so late events for a previously active chat fall through harmlessly.
func (s *ChatSession) consume(sub *feed.Subscription) {
	for ev := range sub.Events() {
		if ev.Lost {
			s.warn(chatError(KindFeedLost, "live updates lost, data may be stale until the next reload", nil))
			continue
		}
		if ev.Snapshot == nil {
			continue
		}
		switch ev.Snapshot.Kind {
		case stores.KindChats:
			s.State.ApplyChatsSnapshot(ev.Snapshot.Chats)
		case stores.KindMessages:
			s.State.ApplyMessagesSnapshot(ev.Snapshot.Scope, ev.Snapshot.Messages)
		}
	}
}

func (s *ChatSession) warn(err *ChatError) {
	s.Logger.Printf("warning: %v", err)
	if s.ErrorHandler != nil {
		s.ErrorHandler(err)
	}
}

// CreateChat creates a chat for the current user and makes it active. The
// new chat starts with zero messages.
func (s *ChatSession) CreateChat(title string) (stores.Chat, error) {
	userID := s.currentUserID()
	if userID == "" {
		return stores.Chat{}, chatError(KindAuthRequired, "no user signed in", nil)
	}
	if title == "" {
		title = DefaultChatTitle
	}

	chat, err := s.Store.CreateChat(userID, title)
	if err != nil {
		return stores.Chat{}, chatError(KindWriteFailed, "failed to create chat", err)
	}

	s.SetActiveChat(chat.ID)
	return chat, nil
}

// DeleteChat removes a chat after verifying ownership. Local state is only
// touched once the remote delete has been acknowledged.
func (s *ChatSession) DeleteChat(chatID string) error {
	userID := s.currentUserID()
	if userID == "" {
		return chatError(KindAuthRequired, "no user signed in", nil)
	}

	chat, err := s.Store.GetChat(chatID)
	if err != nil {
		return chatError(KindWriteFailed, "failed to load chat", err)
	}
	if chat.UserID != userID {
		s.Logger.Printf("policy violation: user %s attempted to delete chat %s owned by %s", userID, chatID, chat.UserID)
		return chatError(KindOwnershipDenied, "chat is not owned by the current user", nil)
	}

	wasActive := s.State.ActiveChatID() == chatID
	if err := s.Store.DeleteChat(chatID); err != nil {
		return chatError(KindWriteFailed, "failed to delete chat", err)
	}

	s.State.RemoveChat(chatID)
	if wasActive {
		s.swapMessagesSub("")
	}
	return nil
}

// Send runs one full exchange: persist the user message, invoke the
// assistant with the bounded context window, persist the reply. The
// returned message is the assistant's.
//
// With no active chat, a chat is created first and the send proceeds only
// once its id is known. At most one exchange runs per chat; a second send
// for the same chat is rejected with ErrExchangeInFlight, not queued.
func (s *ChatSession) Send(ctx context.Context, content string) (stores.Message, error) {
	userID := s.currentUserID()
	if userID == "" {
		return stores.Message{}, chatError(KindAuthRequired, "no user signed in", nil)
	}

	chatID := s.State.ActiveChatID()
	if chatID == "" {
		chat, err := s.CreateChat(DefaultChatTitle)
		if err != nil {
			return stores.Message{}, err
		}
		chatID = chat.ID
	}

	chat, err := s.Store.GetChat(chatID)
	if err != nil {
		return stores.Message{}, chatError(KindWriteFailed, "failed to load chat", err)
	}
	if chat.UserID != userID {
		s.Logger.Printf("policy violation: user %s attempted to send to chat %s owned by %s", userID, chatID, chat.UserID)
		return stores.Message{}, chatError(KindOwnershipDenied, "chat is not owned by the current user", nil)
	}

	if !s.acquire(chatID) {
		return stores.Message{}, ErrExchangeInFlight
	}
	defer s.release(chatID)

	// Optimistic placeholder; retired by the merge once the confirmed row
	// arrives, removed outright if the write fails.
	pending := stores.Message{
		ID:        "local-" + uuid.NewString(),
		ChatID:    chatID,
		Role:      stores.RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Pending:   true,
	}
	s.State.AppendOptimisticMessage(pending)

	confirmed, err := s.Store.SaveMessage(chatID, stores.RoleUser, content)
	if err != nil {
		s.State.DropOptimisticMessage(chatID, pending.ID)
		return stores.Message{}, chatError(KindWriteFailed, "failed to save message", err)
	}
	s.State.ApplyMessagesSnapshot(chatID, []stores.Message{confirmed})

	// Busy is scoped to this chat: a reply landing while another chat is in
	// the foreground clears this chat's flag, nobody else's.
	s.State.SetAssistantBusy(chatID, true)
	defer s.State.SetAssistantBusy(chatID, false)

	window := BuildContextWindow(s.SystemPrompt, s.historyBefore(chatID, confirmed.ID), s.HistoryLimit, content)

	timeout := s.AssistantTimeout
	if timeout <= 0 {
		timeout = DefaultAssistantTimeout
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := s.Model.Generate(genCtx, window)
	if err != nil {
		// The user's message stays persisted; it was sent.
		return stores.Message{}, chatError(KindAssistantUnavailable, "assistant request failed", err)
	}

	saved, err := s.Store.SaveMessage(chatID, stores.RoleAssistant, reply)
	if err != nil {
		return stores.Message{}, chatError(KindWriteFailed, "failed to save assistant reply", err)
	}
	s.State.ApplyMessagesSnapshot(chatID, []stores.Message{saved})

	return saved, nil
}

// historyBefore fetches the chat's messages minus the row excluded by id,
// which the window builder appends itself as the outgoing turn.
func (s *ChatSession) historyBefore(chatID, excludeID string) []stores.Message {
	msgs, err := s.Store.FetchMessages(chatID)
	if err != nil {
		s.Logger.Printf("failed to fetch history for chat %s: %v", chatID, err)
		return nil
	}
	kept := msgs[:0]
	for _, m := range msgs {
		if m.ID != excludeID {
			kept = append(kept, m)
		}
	}
	return kept
}

// Reload re-fetches the chat list and the active chat's messages from the
// durable store. Used as drift repair after feed loss and by the scheduled
// refresh.
func (s *ChatSession) Reload() error {
	userID := s.currentUserID()
	if userID == "" {
		return nil
	}

	chats, err := s.Store.ListChatsForUser(userID)
	if err != nil {
		return fmt.Errorf("failed to reload chats: %w", err)
	}
	s.State.ApplyChatsSnapshot(chats)

	chatID := s.State.ActiveChatID()
	if chatID == "" {
		return nil
	}
	msgs, err := s.Store.FetchMessages(chatID)
	if err != nil {
		return fmt.Errorf("failed to reload messages for chat %s: %w", chatID, err)
	}
	s.State.ApplyMessagesSnapshot(chatID, msgs)
	return nil
}
