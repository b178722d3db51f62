package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type LoginTestChecker struct {
	mu             sync.RWMutex
	LoggedSessions map[string]uuid.UUID
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		LoggedSessions: map[string]uuid.UUID{},
	}
}

func (c *LoginTestChecker) Add(token string, ownerID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LoggedSessions[token] = ownerID
}

func (c *LoginTestChecker) IsLogged(_ context.Context, token string) (uuid.UUID, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ownerID, ok := c.LoggedSessions[token]
	return ownerID, ok, nil
}

func (c *LoginTestChecker) Forget(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.LoggedSessions, token)
}
