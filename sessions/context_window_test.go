package sessions

import (
	"fmt"
	"testing"

	models "github.com/Desarso/chatsync/models"
	"github.com/Desarso/chatsync/stores"
)

func TestBuildContextWindow_EmptyHistory(t *testing.T) {
	turns := BuildContextWindow("", nil, DefaultHistoryLimit, "hello")
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != models.RoleSystem || turns[0].Content != DefaultSystemPrompt {
		t.Errorf("Expected default system turn first, got %+v", turns[0])
	}
	if turns[1].Role != models.RoleUser || turns[1].Content != "hello" {
		t.Errorf("Expected outgoing user turn last, got %+v", turns[1])
	}
}

func TestBuildContextWindow_TruncatesOldestFirst(t *testing.T) {
	history := make([]stores.Message, 0, 15)
	for i := 1; i <= 15; i++ {
		role := stores.RoleUser
		if i%2 == 0 {
			role = stores.RoleAssistant
		}
		history = append(history, stores.Message{
			Role:    role,
			Content: fmt.Sprintf("message %d", i),
		})
	}

	turns := BuildContextWindow("", history, 10, "question")
	// system + 10 history + outgoing
	if len(turns) != 12 {
		t.Fatalf("Expected 12 turns, got %d", len(turns))
	}
	if turns[1].Content != "message 6" {
		t.Errorf("Expected oldest surviving message to be message 6, got %q", turns[1].Content)
	}
	if turns[10].Content != "message 15" {
		t.Errorf("Expected newest history message to be message 15, got %q", turns[10].Content)
	}
	if turns[11].Content != "question" {
		t.Errorf("Expected outgoing message last, got %q", turns[11].Content)
	}
}

func TestBuildContextWindow_RoleMapping(t *testing.T) {
	history := []stores.Message{
		{Role: stores.RoleUser, Content: "hi"},
		{Role: stores.RoleAssistant, Content: "hello"},
	}
	turns := BuildContextWindow("custom prompt", history, 10, "again")
	if turns[0].Content != "custom prompt" {
		t.Errorf("Expected custom system prompt, got %q", turns[0].Content)
	}
	if turns[1].Role != models.RoleUser {
		t.Errorf("Expected user role for user message, got %s", turns[1].Role)
	}
	if turns[2].Role != models.RoleAssistant {
		t.Errorf("Expected assistant role for assistant message, got %s", turns[2].Role)
	}
}

func TestBuildContextWindow_ZeroLimitUsesDefault(t *testing.T) {
	history := make([]stores.Message, 12)
	for i := range history {
		history[i] = stores.Message{Role: stores.RoleUser, Content: fmt.Sprintf("m%d", i)}
	}
	turns := BuildContextWindow("", history, 0, "go")
	if len(turns) != DefaultHistoryLimit+2 {
		t.Errorf("Expected default limit applied, got %d turns", len(turns))
	}
}
