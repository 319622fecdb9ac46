package sessions

import (
	models "github.com/Desarso/chatsync/models"
	"github.com/Desarso/chatsync/stores"
)

// DefaultHistoryLimit is how many prior messages accompany a request, the
// same window the hosted function used.
const DefaultHistoryLimit = 10

// DefaultSystemPrompt is the assistant's fixed operating instruction.
const DefaultSystemPrompt = "You are a helpful AI assistant. Provide clear, concise, and helpful responses to user questions."

// BuildContextWindow assembles the prompt for one assistant invocation: the
// system turn, the most recent limit messages of history in chronological
// order, then the outgoing user message. Truncation only ever drops from
// the oldest end, so the newest turns the assistant needs are always intact.
func BuildContextWindow(systemPrompt string, history []stores.Message, limit int, outgoing string) []models.ChatTurn {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	turns := make([]models.ChatTurn, 0, len(history)+2)
	turns = append(turns, models.ChatTurn{Role: models.RoleSystem, Content: systemPrompt})

	for _, msg := range history {
		role := models.RoleUser
		if msg.Role == stores.RoleAssistant {
			role = models.RoleAssistant
		}
		turns = append(turns, models.ChatTurn{Role: role, Content: msg.Content})
	}

	turns = append(turns, models.ChatTurn{Role: models.RoleUser, Content: outgoing})
	return turns
}
