package cart

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTTL is how long an untouched cart is kept.
const DefaultIdleTTL = 24 * time.Hour

type entry struct {
	cart     *Cart
	lastSeen time.Time
}

// Registry tracks the carts of live storefront sessions. Carts nobody has
// looked up for longer than the idle TTL are evicted by Run.
type Registry struct {
	mu      sync.Mutex
	carts   map[uuid.UUID]*entry
	idleTTL time.Duration
	now     func() time.Time
}

// NewRegistry creates a registry. A non-positive idleTTL uses DefaultIdleTTL.
func NewRegistry(idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		carts:   make(map[uuid.UUID]*entry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Create registers an empty cart and returns its id.
func (r *Registry) Create() (uuid.UUID, *Cart) {
	id := uuid.New()
	c := New()

	r.mu.Lock()
	r.carts[id] = &entry{cart: c, lastSeen: r.now()}
	r.mu.Unlock()
	return id, c
}

// Get returns the cart for id, or false when no such session exists.
// A hit refreshes the cart's idle timer.
func (r *Registry) Get(id uuid.UUID) (*Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.cart, true
}

func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	delete(r.carts, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// EvictIdle drops every cart last seen before now minus the idle TTL and
// returns how many were removed.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.carts {
		if e.lastSeen.Before(cutoff) {
			delete(r.carts, id)
			n++
		}
	}
	return n
}

// Run evicts idle carts every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.idleTTL / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				log.Printf("Evicted %d idle carts", n)
			}
		}
	}
}
