package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/doorbot/internal/access"
)

// MemoryCredentials is an in-memory access.Credentials.
//
// PINs are stored in clear text; this type exists for tests and scenarios.
type MemoryCredentials struct {
	mu    sync.Mutex
	users map[string]memoryUser
	err   error
}

type memoryUser struct {
	pin   string
	admin bool
}

// NewMemoryCredentials creates an empty credential set.
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{users: make(map[string]memoryUser)}
}

// Seed adds a user without going through AddUser's duplicate check.
func (c *MemoryCredentials) Seed(token, pin string, admin bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[token] = memoryUser{pin: pin, admin: admin}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (c *MemoryCredentials) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// PIN returns the stored PIN for token.
func (c *MemoryCredentials) PIN(token string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[token]
	return u.pin, ok
}

// Admin reports the admin flag of token.
func (c *MemoryCredentials) Admin(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users[token].admin
}

// Tokens returns the enrolled tokens in sorted order.
func (c *MemoryCredentials) Tokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.users))
	for t := range c.users {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (c *MemoryCredentials) Verify(_ context.Context, token, pin string) (*access.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	u, ok := c.users[token]
	if !ok || u.pin != pin {
		return nil, nil
	}
	return &access.User{Token: token, Admin: u.admin}, nil
}

func (c *MemoryCredentials) UserExists(_ context.Context, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	_, ok := c.users[token]
	return ok, nil
}

func (c *MemoryCredentials) AddUser(_ context.Context, token, pin string, admin bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if _, ok := c.users[token]; ok {
		return fmt.Errorf("user %q already exists", token)
	}
	c.users[token] = memoryUser{pin: pin, admin: admin}
	return nil
}

func (c *MemoryCredentials) UpdatePIN(_ context.Context, token, pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	u, ok := c.users[token]
	if !ok {
		return fmt.Errorf("user %q not found", token)
	}
	u.pin = pin
	c.users[token] = u
	return nil
}

var _ access.Credentials = (*MemoryCredentials)(nil)
