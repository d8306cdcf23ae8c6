package session

import (
	"context"
	"sort"
	"sync"
)

// Registry caches sessions by model name. The factory runs inside the
// registry mutex, so concurrent requests for the same model observe a
// single construction; a failed construction caches nothing.
type Registry[S any] struct {
	mu       sync.Mutex
	factory  func(ctx context.Context, model string) (S, error)
	sessions map[string]S
}

// NewRegistry creates a registry backed by the given session factory.
func NewRegistry[S any](factory func(ctx context.Context, model string) (S, error)) *Registry[S] {
	return &Registry[S]{
		factory:  factory,
		sessions: make(map[string]S),
	}
}

// Get returns the session for model, creating it on first use.
func (r *Registry[S]) Get(ctx context.Context, model string) (S, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[model]; ok {
		return s, nil
	}
	s, err := r.factory(ctx, model)
	if err != nil {
		var zero S
		return zero, err
	}
	r.sessions[model] = s
	return s, nil
}

// Peek returns the session for model without creating one.
func (r *Registry[S]) Peek(model string) (S, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[model]
	return s, ok
}

// Remove drops the session for model, if any.
func (r *Registry[S]) Remove(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, model)
}

// Clear drops all sessions.
func (r *Registry[S]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]S)
}

// Models returns the models with live sessions, sorted.
func (r *Registry[S]) Models() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	models := make([]string, 0, len(r.sessions))
	for model := range r.sessions {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Each calls fn for every live session.
func (r *Registry[S]) Each(fn func(model string, s S)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for model, s := range r.sessions {
		fn(model, s)
	}
}
