package services

import (
	"sync"
	"time"

	"github.com/spinhouse/prompt-engine/pkg/models"
)

// InsightCache stores computed learning insights per pattern tag so repeat
// prompts do not recompute aggregates on every request.
type InsightCache interface {
	// Get returns the cached insights for a pattern if present and still
	// fresh.
	Get(patternTag string) (*models.LearningInsights, bool)

	// Put stores insights for a pattern, stamping the current time.
	Put(patternTag string, insights *models.LearningInsights)

	// Invalidate drops the cached entry for a pattern, if any.
	Invalidate(patternTag string)
}

// defaultInsightTTL bounds how stale cached insights may get before a
// recompute. New feedback invalidates eagerly; the TTL covers feedback
// written by other processes.
const defaultInsightTTL = 10 * time.Minute

type memoryInsightCache struct {
	mu      sync.RWMutex
	entries map[string]*models.LearningInsights
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryInsightCache creates an in-process insight cache with the
// default freshness window.
func NewMemoryInsightCache() InsightCache {
	return &memoryInsightCache{
		entries: make(map[string]*models.LearningInsights),
		ttl:     defaultInsightTTL,
		now:     time.Now,
	}
}

func (c *memoryInsightCache) Get(patternTag string) (*models.LearningInsights, bool) {
	c.mu.RLock()
	insights, ok := c.entries[patternTag]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(insights.ComputedAt) > c.ttl {
		return nil, false
	}
	return insights, true
}

func (c *memoryInsightCache) Put(patternTag string, insights *models.LearningInsights) {
	insights.ComputedAt = c.now()
	c.mu.Lock()
	c.entries[patternTag] = insights
	c.mu.Unlock()
}

func (c *memoryInsightCache) Invalidate(patternTag string) {
	c.mu.Lock()
	delete(c.entries, patternTag)
	c.mu.Unlock()
}

var _ InsightCache = (*memoryInsightCache)(nil)
