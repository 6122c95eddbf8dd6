// Package credstore persiste el estado de sesión del cliente bajo claves fijas.
package credstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Claves persistidas. Todas se borran juntas al cerrar sesión.
const (
	KeyUser          = "smush_user"
	KeyAccessExpire  = "smush_access_expire"
	KeyRefreshExpire = "smush_refresh_expire"
	KeyCookies       = "smush_cookies"
)

// SessionKeys lista todas las claves que forman una sesión.
var SessionKeys = []string{KeyUser, KeyAccessExpire, KeyRefreshExpire, KeyCookies}

// Store es un almacén clave/valor de strings. El SessionManager es su único escritor.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryStore es un Store en memoria. No sobrevive reinicios.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemoryStore crea un MemoryStore vacío.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(key) == "" {
		return nil
	}
	s.items[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}

// Keys devuelve las claves presentes, ordenadas.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
