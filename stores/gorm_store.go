package stores

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormChatStore holds the CRUD shared by the SQLite and PostgreSQL stores.
// Only connection setup differs between backends.
type gormChatStore struct {
	db       *gorm.DB
	notifier *ChangeNotifier
}

// newID returns a UUIDv7 string. Time-ordered ids keep the lexical tiebreak
// in the message ordering rule consistent with insertion order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *gormChatStore) migrate() error {
	return s.db.AutoMigrate(&Chat{}, &Message{})
}

// CreateChat inserts a new chat and returns the created row.
func (s *gormChatStore) CreateChat(userID, title string) (Chat, error) {
	if s.db == nil {
		return Chat{}, fmt.Errorf("database connection is nil")
	}

	now := time.Now().UTC()
	chat := Chat{
		ID:        newID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.Create(&chat).Error; err != nil {
		return Chat{}, fmt.Errorf("failed to create chat record: %w", err)
	}

	s.notifier.Publish(KindChats, userID)
	return chat, nil
}

// GetChat retrieves a single chat by id.
func (s *gormChatStore) GetChat(chatID string) (Chat, error) {
	if s.db == nil {
		return Chat{}, fmt.Errorf("database connection is nil")
	}

	var chat Chat
	if err := s.db.Where("id = ?", chatID).First(&chat).Error; err != nil {
		return Chat{}, fmt.Errorf("failed to fetch chat %s: %w", chatID, err)
	}
	return chat, nil
}

// ListChatsForUser returns all chats owned by a user, most recently
// updated first.
func (s *gormChatStore) ListChatsForUser(userID string) ([]Chat, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var chats []Chat
	if err := s.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch chats: %w", err)
	}
	return chats, nil
}

// DeleteChat removes a chat and all of its messages.
func (s *gormChatStore) DeleteChat(chatID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	chat, err := s.GetChat(chatID)
	if err != nil {
		return err
	}

	tx := s.db.Begin()
	if err := tx.Where("chat_id = ?", chatID).Delete(&Message{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete messages for chat %s: %w", chatID, err)
	}
	if err := tx.Where("id = ?", chatID).Delete(&Chat{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete chat %s: %w", chatID, err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit chat delete: %w", err)
	}

	s.notifier.Publish(KindMessages, chatID)
	s.notifier.Publish(KindChats, chat.UserID)
	return nil
}

// SaveMessage inserts a message, bumps the parent chat's updated_at in the
// same transaction and returns the created row.
func (s *gormChatStore) SaveMessage(chatID, role, content string) (Message, error) {
	if s.db == nil {
		return Message{}, fmt.Errorf("database connection is nil")
	}

	chat, err := s.GetChat(chatID)
	if err != nil {
		return Message{}, err
	}

	now := time.Now().UTC()
	msg := Message{
		ID:        newID(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}

	tx := s.db.Begin()
	if err := tx.Create(&msg).Error; err != nil {
		tx.Rollback()
		return Message{}, fmt.Errorf("failed to create message record: %w", err)
	}
	if err := tx.Model(&Chat{}).Where("id = ?", chatID).Update("updated_at", now).Error; err != nil {
		tx.Rollback()
		return Message{}, fmt.Errorf("failed to update chat timestamp: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return Message{}, fmt.Errorf("failed to commit message save: %w", err)
	}

	s.notifier.Publish(KindMessages, chatID)
	// The updated_at bump reorders the owner's chat list as well.
	s.notifier.Publish(KindChats, chat.UserID)
	return msg, nil
}

// FetchMessages retrieves all messages of a chat in (created_at, id) order.
func (s *gormChatStore) FetchMessages(chatID string) ([]Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var msgs []Message
	if err := s.db.Where("chat_id = ?", chatID).Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

// Close closes the database connection
func (s *gormChatStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *gormChatStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
