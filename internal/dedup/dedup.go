// Package dedup implements the idempotency gate that keeps a message id
// from being dispatched more than once.
package dedup

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Gate is a concurrent set of previously-seen message ids. It is created
// once at startup and cleared only on restart. Entries expire after the
// configured TTL so the set stays bounded under sustained load.
type Gate struct {
	seen *cache.Cache
}

// New creates a gate whose entries live for ttl. A non-positive ttl
// disables eviction entirely, reproducing a process-lifetime set.
func New(ttl time.Duration) *Gate {
	if ttl <= 0 {
		return &Gate{seen: cache.New(cache.NoExpiration, 0)}
	}
	cleanup := ttl / 2
	if cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &Gate{seen: cache.New(ttl, cleanup)}
}

// MarkIfNew atomically records the id and reports whether it was unseen.
// The first caller for a given id gets true; every later caller within
// the TTL window gets false, including callers racing concurrently.
func (g *Gate) MarkIfNew(messageID string) bool {
	// Add is check-and-set under the cache's lock: it fails when the key
	// already exists, so exactly one concurrent caller wins.
	return g.seen.Add(messageID, struct{}{}, cache.DefaultExpiration) == nil
}

// Len reports the number of ids currently tracked, expired entries
// included until the janitor runs.
func (g *Gate) Len() int {
	return g.seen.ItemCount()
}
