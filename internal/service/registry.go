package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"docqa/internal/domain"
)

// Factory builds the session for a new ID.
type Factory func(id string) (*Session, error)

// Registry keeps sessions by ID. A session expires after ttl without use;
// expired and deleted sessions have their index cleared.
type Registry struct {
	sessions *cache.Cache
	factory  Factory
}

func NewRegistry(factory Factory, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(_ string, v any) {
		if s, ok := v.(*Session); ok {
			_ = s.Reset(context.Background())
		}
	})
	return &Registry{sessions: c, factory: factory}
}

// Create starts a session under a fresh random ID.
func (r *Registry) Create() (string, *Session, error) {
	id := uuid.NewString()
	s, err := r.factory(id)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	r.sessions.Set(id, s, cache.DefaultExpiration)
	return id, s, nil
}

// Get returns the session and extends its lifetime.
func (r *Registry) Get(id string) (*Session, error) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	s := v.(*Session)
	if err := r.touch(id, s); err != nil {
		return nil, err
	}
	return s, nil
}

// touch renews the lifetime of a live entry. Replace fails once the entry
// has expired or been evicted, so an evicted session is never re-inserted.
func (r *Registry) touch(id string, s *Session) error {
	if err := r.sessions.Replace(id, s, cache.DefaultExpiration); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return nil
}

func (r *Registry) Delete(id string) error {
	if _, ok := r.sessions.Get(id); !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	r.sessions.Delete(id)
	return nil
}

func (r *Registry) Len() int { return r.sessions.ItemCount() }
