package internal

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// DefaultSummaryCacheSize bounds the number of cached summaries.
const DefaultSummaryCacheSize = 64

// SummaryCache keeps recent summaries keyed by a content hash of the
// summarized span, evicting the least recently used entry when full.
type SummaryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type summaryEntry struct {
	key  string
	text string
}

// NewSummaryCache creates a cache holding at most capacity summaries.
func NewSummaryCache(capacity int) *SummaryCache {
	if capacity <= 0 {
		capacity = DefaultSummaryCacheSize
	}
	return &SummaryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached summary for key.
func (c *SummaryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*summaryEntry).text, true
}

// Put stores text under key.
func (c *SummaryCache) Put(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*summaryEntry).text = text
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&summaryEntry{key: key, text: text})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*summaryEntry).key)
	}
}

// Len returns the number of cached summaries.
func (c *SummaryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// HashMessages creates a content hash over the role and content of each message.
// Timestamps are advisory and excluded.
func HashMessages(messages []Message) string {
	h := sha256.New()
	for _, msg := range messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
