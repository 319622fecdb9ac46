package api

import (
	"context"
	"net/http"

	"github.com/Desarso/chatsync/sessions"
	"github.com/Desarso/chatsync/stores"
	"github.com/gin-gonic/gin"
)

type createChatRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) handleCreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" {
		req.Title = sessions.DefaultChatTitle
	}

	chat, err := s.Store.CreateChat(c.GetString(userIDKey), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (s *Server) handleListChats(c *gin.Context) {
	chats, err := s.Store.ListChatsForUser(c.GetString(userIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (s *Server) handleDeleteChat(c *gin.Context) {
	chatID := c.Param("chatID")
	if _, ok := s.ownedChat(c, chatID); !ok {
		return
	}

	if err := s.Store.DeleteChat(chatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListMessages(c *gin.Context) {
	chatID := c.Param("chatID")
	if _, ok := s.ownedChat(c, chatID); !ok {
		return
	}

	msgs, err := s.Store.FetchMessages(chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// handleSendMessage runs the full exchange server side: persist the user
// message, invoke the assistant with the bounded window, persist the reply.
// The user's message survives an assistant failure; it was sent.
func (s *Server) handleSendMessage(c *gin.Context) {
	chatID := c.Param("chatID")
	if _, ok := s.ownedChat(c, chatID); !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing content"})
		return
	}

	userMsg, err := s.Store.SaveMessage(chatID, stores.RoleUser, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	history, err := s.Store.FetchMessages(chatID)
	if err != nil {
		s.Logger.Printf("failed to fetch history for chat %s: %v", chatID, err)
		history = nil
	}
	kept := history[:0]
	for _, m := range history {
		if m.ID != userMsg.ID {
			kept = append(kept, m)
		}
	}
	window := sessions.BuildContextWindow(s.SystemPrompt, kept, s.HistoryLimit, req.Content)

	timeout := s.AssistantTimeout
	if timeout <= 0 {
		timeout = sessions.DefaultAssistantTimeout
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	reply, err := s.Model.Generate(ctx, window)
	if err != nil {
		s.Logger.Printf("assistant request failed for chat %s: %v", chatID, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "failed to get assistant response",
			"user_message": userMsg,
		})
		return
	}

	assistantMsg, err := s.Store.SaveMessage(chatID, stores.RoleAssistant, reply)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save assistant response"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Message sent successfully",
		"response": assistantMsg,
	})
}
