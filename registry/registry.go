// Package registry tracks live and recently-terminated exchanges so a
// caller can look one up by ID (to deliver late replies or answer status
// queries) without holding its own bookkeeping. It is bounded LRU state
// the way the teacher repo's hare/eligibility oracle caches active sets,
// using the same github.com/hashicorp/golang-lru/v2 generic cache.
package registry

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/meshkv/aee/exchange"
)

// DefaultSize bounds how many exchanges the registry remembers at once.
// Entries for terminated exchanges are evicted like any other entry; a
// caller that needs to keep an exchange alive past eviction must hold its
// own reference.
const DefaultSize = 4096

// Registry is a bounded, concurrency-safe directory of exchanges keyed by
// their ID. lru.Cache is already safe for concurrent use, so Registry adds
// no locking of its own.
type Registry struct {
	cache *lru.Cache[string, *exchange.Exchange]
}

// New returns a Registry bounded to size entries.
func New(size int) (*Registry, error) {
	cache, err := lru.New[string, *exchange.Exchange](size)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return &Registry{cache: cache}, nil
}

// Add registers ex under its own ID, evicting the least recently used
// entry if the registry is full.
func (r *Registry) Add(ex *exchange.Exchange) {
	r.cache.Add(ex.ID(), ex)
}

// Get looks up an exchange by ID.
func (r *Registry) Get(id string) (*exchange.Exchange, bool) {
	return r.cache.Get(id)
}

// Remove drops an exchange from the registry, typically once its Done
// channel has closed and the caller has finished with it.
func (r *Registry) Remove(id string) {
	r.cache.Remove(id)
}

// Len returns the number of exchanges currently tracked.
func (r *Registry) Len() int {
	return r.cache.Len()
}
