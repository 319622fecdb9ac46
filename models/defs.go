package models

import (
	"context"
)

// Turn roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one role-tagged entry of a context window.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params are the fixed generation parameters for a backend. They are
// configuration, never user input.
type Params struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// DefaultParams mirrors the parameters the hosted function used.
func DefaultParams() Params {
	return Params{MaxTokens: 1000, Temperature: 0.7}
}

// Model is the assistant backend: one bounded request, one generated text
// or an error. Implementations must honor ctx cancellation so the caller
// can enforce its timeout policy.
type Model interface {
	Generate(ctx context.Context, turns []ChatTurn) (string, error)
}
