package sessions

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every error the engine surfaces. No kind is fatal to
// the process; each is scoped to the one operation that raised it.
type ErrorKind string

const (
	// KindAuthRequired: no valid credential. Surface a sign-in prompt, no retry.
	KindAuthRequired ErrorKind = "auth_required"
	// KindWriteFailed: a durable-store write was rejected. The user may retry
	// by resending.
	KindWriteFailed ErrorKind = "write_failed"
	// KindAssistantUnavailable: backend error or timeout. The user's own
	// message stays persisted and visible.
	KindAssistantUnavailable ErrorKind = "assistant_unavailable"
	// KindFeedLost: a subscription exhausted its retries. Local state stays
	// usable but may drift until the next reload.
	KindFeedLost ErrorKind = "feed_lost"
	// KindOwnershipDenied: the operation targeted a chat the caller does not
	// own. Never retried.
	KindOwnershipDenied ErrorKind = "ownership_denied"
)

// ChatError is the one error type crossing the engine boundary.
type ChatError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ChatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// chatError wraps err into a classified ChatError.
func chatError(kind ErrorKind, message string, err error) *ChatError {
	return &ChatError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an engine error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// ErrExchangeInFlight rejects a send while one is already running for the
// same chat. Sends are rejected, not queued.
var ErrExchangeInFlight = errors.New("an exchange is already in flight for this chat")
