package layout

import "sync"

// Cache holds computed placements keyed by branch id. Unlike the snapshot
// store, which is replaced wholesale, the cache is merged incrementally so
// concurrent recomputes converge instead of clobbering unrelated branches'
// entries. Stale entries stay readable until the recompute lands.
type Cache struct {
	mu         sync.RWMutex
	placements map[string]Geometry
	status     map[string]Status
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		placements: make(map[string]Geometry),
		status:     make(map[string]Status),
	}
}

// Merge installs freshly computed placements branch by branch and marks them
// computed. Entries not present in results are left untouched.
func (c *Cache) Merge(results map[string]Geometry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for branchID, geo := range results {
		c.placements[branchID] = geo
		c.status[branchID] = StatusComputed
	}
}

// MarkStale flags computed entries as stale after a tree mutation. Branches
// never computed stay unlaid.
func (c *Cache) MarkStale(branchIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range branchIDs {
		if c.status[id] == StatusComputed {
			c.status[id] = StatusStale
		}
	}
}

// Get returns a branch's placement with its status. ok is false for branches
// the cache has never seen.
func (c *Cache) Get(branchID string) (Geometry, Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	geo, ok := c.placements[branchID]
	if !ok {
		return Geometry{}, StatusUnlaid, false
	}
	return geo, c.status[branchID], true
}

// StatusOf returns a branch's layout status, StatusUnlaid when unknown.
func (c *Cache) StatusOf(branchID string) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.status[branchID]
	if !ok {
		return StatusUnlaid
	}
	return st
}

// Remove drops entries, used when a project is deleted.
func (c *Cache) Remove(branchIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range branchIDs {
		delete(c.placements, id)
		delete(c.status, id)
	}
}
