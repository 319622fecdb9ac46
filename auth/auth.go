// Package auth is the port to the identity provider. The engine treats
// identity as opaque input: a user id to scope queries by, a credential to
// hand to transports, and a change signal that triggers re-scoping.
package auth

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// User is the signed-in identity.
type User struct {
	ID         string `json:"id"`
	Credential string `json:"-"`
}

// Provider supplies the current user and notifies on sign-in/sign-out.
// A zero-ID user passed to the change callback means signed out.
type Provider interface {
	Current() (User, error)
	OnChange(fn func(User))
}

// StaticProvider holds one fixed user, optionally swappable via SetUser.
// Useful for tests and single-user deployments.
type StaticProvider struct {
	mu       sync.Mutex
	user     User
	onChange func(User)
}

// NewStaticProvider creates a provider fixed to the given user.
func NewStaticProvider(user User) *StaticProvider {
	return &StaticProvider{user: user}
}

// Current returns the held user, or an error when signed out.
func (p *StaticProvider) Current() (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user.ID == "" {
		return User{}, fmt.Errorf("no user signed in")
	}
	return p.user, nil
}

// OnChange registers the change callback.
func (p *StaticProvider) OnChange(fn func(User)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// SetUser swaps the current user and fires the change callback. A zero
// User signs out.
func (p *StaticProvider) SetUser(user User) {
	p.mu.Lock()
	p.user = user
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(user)
	}
}

// NewEnvProvider reads CHATSYNC_USER_ID (and optional CHATSYNC_CREDENTIAL)
// from the environment, loading .env the way the model backends do.
func NewEnvProvider() (*StaticProvider, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	id := os.Getenv("CHATSYNC_USER_ID")
	if id == "" {
		return nil, fmt.Errorf("CHATSYNC_USER_ID environment variable not set")
	}

	return NewStaticProvider(User{
		ID:         id,
		Credential: os.Getenv("CHATSYNC_CREDENTIAL"),
	}), nil
}
