package stores

import (
	"time"
)

// Author roles for messages. A message is written either by the signed-in
// user or by the assistant; there is no third kind in storage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat holds metadata for one conversation owned by a single user.
// UpdatedAt is the chat-list sort key and is bumped on every message append.
type Chat struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"type:text" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
	Messages  []Message `gorm:"foreignKey:ChatID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// Message is one immutable turn within a chat. Messages are never edited or
// deleted individually; they only go away when their chat is deleted.
type Message struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ChatID    string    `gorm:"index;not null" json:"chat_id"`
	Role      string    `gorm:"not null" json:"role"` // RoleUser or RoleAssistant
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Pending marks a locally appended entry that has not yet been confirmed
	// by a snapshot. Never persisted.
	Pending bool `gorm:"-" json:"-"`
}

// ChatStore interface for abstracting database operations
type ChatStore interface {
	// Chat operations. CreateChat returns the created row so callers get the
	// generated id and timestamps without a second read.
	CreateChat(userID, title string) (Chat, error)
	GetChat(chatID string) (Chat, error)
	ListChatsForUser(userID string) ([]Chat, error) // ordered by updated_at desc
	DeleteChat(chatID string) error                 // cascades to messages

	// Message operations. SaveMessage inserts the row, bumps the parent
	// chat's updated_at and returns the created row.
	SaveMessage(chatID, role, content string) (Message, error)
	FetchMessages(chatID string) ([]Message, error) // ordered by (created_at, id) asc

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
