package chatsync

import (
	"github.com/Desarso/chatsync/auth"
	"github.com/Desarso/chatsync/feed"
	models "github.com/Desarso/chatsync/models"
	"github.com/Desarso/chatsync/sessions"
	"github.com/Desarso/chatsync/state"
	"github.com/Desarso/chatsync/stores"
)

// Re-export the engine types so embedders only import the root package.
type ChatSession = sessions.ChatSession
type Model = models.Model
type ChatError = sessions.ChatError
type ErrorKind = sessions.ErrorKind
type RefreshScheduler = sessions.RefreshScheduler
type SessionState = state.SessionState
type Chat = stores.Chat
type Message = stores.Message
type Snapshot = feed.Snapshot
type User = auth.User

// Re-export constructor functions
func NewChatSession(provider auth.Provider, store stores.ChatStore, model Model, adapter *feed.Adapter) *ChatSession {
	return sessions.NewChatSession(provider, store, model, adapter)
}

func NewRefreshScheduler(session *ChatSession, schedule string) (*RefreshScheduler, error) {
	return sessions.NewRefreshScheduler(session, schedule)
}
