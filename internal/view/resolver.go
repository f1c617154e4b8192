package view

import (
	"sync"

	"github.com/audiolibrelab/readaloud/internal/session"
)

// Resolver turns a take into a playable source reference.
type Resolver interface {
	Resolve(id session.ID, r session.Recording) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(id session.ID, r session.Recording) string

func (f ResolverFunc) Resolve(id session.ID, r session.Recording) string {
	return f(id, r)
}

// Cached wraps next so a reference is only rebuilt when the active take or
// its chunk count changes.
func Cached(next Resolver) Resolver {
	return &cachedResolver{next: next}
}

type cachedResolver struct {
	next Resolver

	mu     sync.Mutex
	valid  bool
	id     session.ID
	chunks int
	ref    string
}

func (c *cachedResolver) Resolve(id session.ID, r session.Recording) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.id == id && c.chunks == len(r.Chunks) {
		return c.ref
	}
	c.ref = c.next.Resolve(id, r)
	c.id = id
	c.chunks = len(r.Chunks)
	c.valid = true
	return c.ref
}
