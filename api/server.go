// Package api exposes the durable store and the assistant backend over
// HTTP: chat CRUD, an ownership-checked send endpoint that runs the
// store-assistant-store exchange server side, and a websocket endpoint
// pushing materialized snapshots (the transport behind feed.WebSocketSource).
package api

import (
	"log"
	"net/http"
	"os"
	"time"

	models "github.com/Desarso/chatsync/models"
	"github.com/Desarso/chatsync/sessions"
	"github.com/Desarso/chatsync/stores"
	"github.com/gin-gonic/gin"
)

// Server holds the collaborators the handlers need.
type Server struct {
	Store    stores.ChatStore
	Model    models.Model
	Notifier *stores.ChangeNotifier
	Logger   *log.Logger

	SystemPrompt     string
	HistoryLimit     int
	AssistantTimeout time.Duration
}

// NewServer creates a server with the engine defaults.
func NewServer(store stores.ChatStore, model models.Model, notifier *stores.ChangeNotifier) *Server {
	return &Server{
		Store:            store,
		Model:            model,
		Notifier:         notifier,
		Logger:           log.New(os.Stdout, "[api] ", log.LstdFlags),
		SystemPrompt:     sessions.DefaultSystemPrompt,
		HistoryLimit:     sessions.DefaultHistoryLimit,
		AssistantTimeout: sessions.DefaultAssistantTimeout,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	r := router.Group("/api/v1")
	r.Use(s.requireUser)

	r.POST("/chats", s.handleCreateChat)
	r.GET("/chats", s.handleListChats)
	r.DELETE("/chats/:chatID", s.handleDeleteChat)
	r.GET("/chats/:chatID/messages", s.handleListMessages)
	r.POST("/chats/:chatID/messages", s.handleSendMessage)
	r.GET("/subscribe", s.handleSubscribe)

	return router
}

const userIDKey = "userID"

// requireUser resolves the caller's identity. The identity provider itself
// is external; by the time a request lands here its gateway has validated
// the credential and forwarded the user id.
func (s *Server) requireUser(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign-in required"})
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

// ownedChat loads a chat and verifies the caller owns it. Writes the error
// response itself on failure.
func (s *Server) ownedChat(c *gin.Context, chatID string) (stores.Chat, bool) {
	userID := c.GetString(userIDKey)

	chat, err := s.Store.GetChat(chatID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return stores.Chat{}, false
	}
	if chat.UserID != userID {
		s.Logger.Printf("policy violation: user %s attempted access to chat %s owned by %s", userID, chatID, chat.UserID)
		c.JSON(http.StatusForbidden, gin.H{"error": "chat not found or access denied"})
		return stores.Chat{}, false
	}
	return chat, true
}
