package chatsync

import (
	"time"

	"github.com/Desarso/chatsync/auth"
	"github.com/Desarso/chatsync/feed"
	models "github.com/Desarso/chatsync/models"
	"github.com/Desarso/chatsync/models/openrouter"
	"github.com/Desarso/chatsync/sessions"
	"github.com/Desarso/chatsync/stores"
)

// Config assembles the engine's collaborators. Zero values fall back to the
// defaults set by NewConfig.
type Config struct {
	Store    stores.ChatStore
	Model    models.Model
	Auth     auth.Provider
	Notifier *stores.ChangeNotifier

	SystemPrompt     string
	HistoryLimit     int
	AssistantTimeout time.Duration
}

// NewConfig creates a configuration with default values: a local SQLite
// store with an in-process change notifier, and the OpenRouter backend with
// its fixed parameters.
func NewConfig() *Config {
	notifier := stores.NewChangeNotifier()

	defaultStore, err := stores.NewSQLiteStoreDefault()
	if err != nil {
		// If we can't create the default store, panic or use a nil store
		// In production, you might want to handle this more gracefully
		panic("Failed to create default SQLite store: " + err.Error())
	}
	if s, ok := defaultStore.(*stores.SQLiteStore); ok {
		s.SetNotifier(notifier)
	}

	return &Config{
		Store:            defaultStore,
		Model:            &openrouter.OpenRouter_Model{},
		Notifier:         notifier,
		SystemPrompt:     sessions.DefaultSystemPrompt,
		HistoryLimit:     sessions.DefaultHistoryLimit,
		AssistantTimeout: sessions.DefaultAssistantTimeout,
	}
}

// WithStore sets the chat store for the configuration
func (c *Config) WithStore(store stores.ChatStore) *Config {
	c.Store = store
	return c
}

// WithModel sets the assistant backend for the configuration
func (c *Config) WithModel(model models.Model) *Config {
	c.Model = model
	return c
}

// WithAuth sets the identity provider for the configuration
func (c *Config) WithAuth(provider auth.Provider) *Config {
	c.Auth = provider
	return c
}

// WithNotifier sets the change notifier for the configuration
func (c *Config) WithNotifier(notifier *stores.ChangeNotifier) *Config {
	c.Notifier = notifier
	return c
}

// WithSQLiteStore sets a SQLite store with the specified database path,
// wired to the configuration's change notifier.
func (c *Config) WithSQLiteStore(dbPath string) *Config {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	store.SetNotifier(c.Notifier)
	c.Store = store
	return c
}

// WithPostgresStore sets a PostgreSQL store with the specified connection
// parameters, wired to the configuration's change notifier.
func (c *Config) WithPostgresStore(host, user, password, dbname string, port int) *Config {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	if s, ok := store.(*stores.PostgresStore); ok {
		s.SetNotifier(c.Notifier)
	}
	c.Store = store
	return c
}

// NewSession builds a chat session from the configuration. Live updates run
// over the in-process change notifier (strategy B); the websocket snapshot
// source can be swapped in with NewSessionWithFeed.
func (c *Config) NewSession() *sessions.ChatSession {
	var adapter *feed.Adapter
	if c.Notifier != nil {
		adapter = feed.NewSignalAdapter(
			&feed.NotifierSource{Notifier: c.Notifier},
			&feed.StoreFetcher{Store: c.Store},
		)
	}
	return c.NewSessionWithFeed(adapter)
}

// NewSessionWithFeed builds a chat session over an explicit feed adapter.
func (c *Config) NewSessionWithFeed(adapter *feed.Adapter) *sessions.ChatSession {
	session := sessions.NewChatSession(c.Auth, c.Store, c.Model, adapter)
	if c.SystemPrompt != "" {
		session.SystemPrompt = c.SystemPrompt
	}
	if c.HistoryLimit > 0 {
		session.HistoryLimit = c.HistoryLimit
	}
	if c.AssistantTimeout > 0 {
		session.AssistantTimeout = c.AssistantTimeout
	}
	return session
}
