// Package tokenstore holds the backend bearer token of each dashboard role.
package tokenstore

import (
	"fmt"
	"strings"
	"sync"
)

// Role names one of the four independent credential slots.
type Role string

const (
	RoleManufacturer Role = "manufacturer"
	RoleDistributor  Role = "distributor"
	RoleRFC          Role = "rfc"
	RoleAdmin        Role = "admin"
)

// Prefix is applied once when a token is written.
const Prefix = "Bearer "

var roles = []Role{RoleManufacturer, RoleDistributor, RoleRFC, RoleAdmin}

// Roles lists every valid slot.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// ParseRole validates a role name coming from a URL or form.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "super-admin" || r == "superadmin" {
		r = RoleAdmin
	}
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

// Store keeps one token per role. Tokens never expire here; a stale token is
// only noticed when the backend rejects it.
type Store struct {
	mu     sync.RWMutex
	tokens map[Role]string
}

func New() *Store {
	return &Store{tokens: make(map[Role]string, len(roles))}
}

// Set stores token for role with Prefix applied. A token that already carries
// the prefix is stored as-is.
func (s *Store) Set(role Role, token string) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token for role %s", role)
	}
	if !strings.HasPrefix(token, Prefix) {
		token = Prefix + token
	}

	s.mu.Lock()
	s.tokens[role] = token
	s.mu.Unlock()
	return nil
}

// Get returns the prefixed token for role.
func (s *Store) Get(role Role) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[role]
	return token, ok
}

func (s *Store) Remove(role Role) {
	s.mu.Lock()
	delete(s.tokens, role)
	s.mu.Unlock()
}

// Active lists roles that currently hold a token, in slot order.
func (s *Store) Active() []Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Role
	for _, r := range roles {
		if _, ok := s.tokens[r]; ok {
			out = append(out, r)
		}
	}
	return out
}
