// Package warnings collects distinct warning messages during a command run
// so they can be reported together once the command finishes.
package warnings

import "sync"

// Reporter receives flushed warnings. *logger.Logger satisfies it.
type Reporter interface {
	Warnf(format string, args ...any)
}

// Cache is an insertion-ordered set of warning strings. The zero value is
// ready to use. A single Cache is owned by the top-level command and passed
// to whatever may emit warnings.
type Cache struct {
	mu    sync.Mutex
	items []string
	seen  map[string]struct{}
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{}
}

// Add records each warning not already present.
func (c *Cache) Add(warnings ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	for _, w := range warnings {
		if _, ok := c.seen[w]; ok {
			continue
		}
		c.seen[w] = struct{}{}
		c.items = append(c.items, w)
	}
}

// Len returns the number of pending warnings.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Warnings returns a copy of the pending warnings in insertion order.
func (c *Cache) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.items))
	copy(out, c.items)
	return out
}

// Flush reports every pending warning to r and empties the cache.
func (c *Cache) Flush(r Reporter) {
	c.mu.Lock()
	items := c.items
	c.items = nil
	c.seen = nil
	c.mu.Unlock()

	for _, w := range items {
		r.Warnf("%s", w)
	}
}
