package sessions

import (
	"log"
	"os"

	"github.com/Desarso/chatsync/auth"
	"github.com/Desarso/chatsync/feed"
	models "github.com/Desarso/chatsync/models"
	"github.com/Desarso/chatsync/state"
	"github.com/Desarso/chatsync/stores"
)

// NewChatSession creates a session wired to the given collaborators. The
// feed adapter may be nil, which disables live updates; Reload then becomes
// the only way state catches up with remote writes.
func NewChatSession(provider auth.Provider, store stores.ChatStore, model models.Model, adapter *feed.Adapter) *ChatSession {
	logger := log.New(os.Stdout, "[session] ", log.LstdFlags)

	return &ChatSession{
		Auth:             provider,
		Store:            store,
		Model:            model,
		Feed:             adapter,
		State:            state.New(),
		Logger:           logger,
		SystemPrompt:     DefaultSystemPrompt,
		HistoryLimit:     DefaultHistoryLimit,
		AssistantTimeout: DefaultAssistantTimeout,
		inflight:         make(map[string]bool),
	}
}
