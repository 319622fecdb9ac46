package sessions

import (
	"log"
	"sync"
	"time"

	"github.com/Desarso/chatsync/auth"
	"github.com/Desarso/chatsync/feed"
	models "github.com/Desarso/chatsync/models"
	"github.com/Desarso/chatsync/state"
	"github.com/Desarso/chatsync/stores"
)

// DefaultAssistantTimeout bounds one assistant invocation. A timeout is
// treated exactly like a backend failure.
const DefaultAssistantTimeout = 60 * time.Second

// DefaultChatTitle is the title given to chats created implicitly by a send.
const DefaultChatTitle = "New Chat"

// ChatSession drives one user's conversations: it owns the session state,
// sequences the user-write / assistant-reply exchange, and keeps state in
// sync with the change feed.
type ChatSession struct {
	Auth   auth.Provider
	Store  stores.ChatStore
	Model  models.Model
	Feed   *feed.Adapter // optional: nil disables live updates
	State  *state.SessionState
	Logger *log.Logger

	SystemPrompt     string
	HistoryLimit     int
	AssistantTimeout time.Duration

	// ErrorHandler receives non-blocking warnings such as feed loss.
	// Optional; warnings are always logged regardless.
	ErrorHandler func(*ChatError)

	mu          sync.Mutex
	userID      string
	inflight    map[string]bool // chat id -> exchange in flight
	chatsSub    *feed.Subscription
	messagesSub *feed.Subscription
	closed      bool
}

// acquire claims the single in-flight exchange slot for a chat.
func (s *ChatSession) acquire(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[chatID] {
		return false
	}
	s.inflight[chatID] = true
	return true
}

func (s *ChatSession) release(chatID string) {
	s.mu.Lock()
	delete(s.inflight, chatID)
	s.mu.Unlock()
}

// currentUserID returns the scoped user id, or "" when signed out.
func (s *ChatSession) currentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}
