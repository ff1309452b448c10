// ABOUTME: Thread-safe TTL and size bounded cache of synthesized audio URLs
// ABOUTME: Keyed by the spoken text so repeated replies skip the TTS round trip

package speech

import (
	"container/list"
	"sync"
	"time"

	"tailscale.com/tstime"
)

// cacheEntry stores the audio URL, when it was stored, and its list element.
type cacheEntry struct {
	url       string
	timestamp time.Time
	element   *list.Element
}

// AudioCache maps text to a previously synthesized audio URL.
// Recently used entries move to the back of the list; the front is evicted
// when the cache is full.
type AudioCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   *list.List // keys, least recently used at front
	ttl     time.Duration
	maxSize int
	clock   tstime.Clock
	ticker  tstime.TickerController
	done    chan struct{}
	closed  bool
}

// NewAudioCache creates a cache. A background goroutine drops expired
// entries once per ttl.
func NewAudioCache(ttl time.Duration, maxSize int, clock tstime.Clock) *AudioCache {
	if clock == nil {
		clock = tstime.StdClock{}
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c := &AudioCache{
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		clock:   clock,
		done:    make(chan struct{}),
	}
	ticker, ch := clock.NewTicker(ttl)
	c.ticker = ticker
	go c.cleanup(ch)
	return c
}

// Get returns the cached URL for text if present and not expired.
func (c *AudioCache) Get(text string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[text]
	if !ok {
		return "", false
	}
	if c.clock.Since(entry.timestamp) >= c.ttl {
		c.removeLocked(text, entry)
		return "", false
	}
	c.order.MoveToBack(entry.element)
	return entry.url, true
}

// Put stores url for text, evicting the least recently used entry when full.
func (c *AudioCache) Put(text, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if entry, exists := c.entries[text]; exists {
		entry.url = url
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(text)
	c.entries[text] = &cacheEntry{url: url, timestamp: now, element: elem}
}

// Len returns the number of stored entries, expired or not.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest must be called with mu held.
func (c *AudioCache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, key)
}

func (c *AudioCache) removeLocked(key string, entry *cacheEntry) {
	c.order.Remove(entry.element)
	delete(c.entries, key)
}

func (c *AudioCache) cleanup(ticks <-chan time.Time) {
	for {
		select {
		case <-ticks:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes all expired entries.
func (c *AudioCache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if c.clock.Since(entry.timestamp) >= c.ttl {
			c.removeLocked(key, entry)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call multiple times.
func (c *AudioCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.ticker.Stop()
		close(c.done)
		c.closed = true
	}
}
