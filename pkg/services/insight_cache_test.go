package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinhouse/prompt-engine/pkg/models"
)

func TestMemoryInsightCache_PutGet(t *testing.T) {
	cache := NewMemoryInsightCache()

	cache.Put("ranking", &models.LearningInsights{PatternTag: "ranking", SampleCount: 3})

	got, ok := cache.Get("ranking")
	require.True(t, ok)
	assert.Equal(t, "ranking", got.PatternTag)
	assert.Equal(t, 3, got.SampleCount)
	assert.False(t, got.ComputedAt.IsZero(), "Put stamps the computation time")
}

func TestMemoryInsightCache_MissingKey(t *testing.T) {
	cache := NewMemoryInsightCache()

	_, ok := cache.Get("trend")
	assert.False(t, ok)
}

func TestMemoryInsightCache_Invalidate(t *testing.T) {
	cache := NewMemoryInsightCache()
	cache.Put("ranking", &models.LearningInsights{PatternTag: "ranking"})

	cache.Invalidate("ranking")

	_, ok := cache.Get("ranking")
	assert.False(t, ok)
}

func TestMemoryInsightCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryInsightCache()
	patterns := []string{"ranking", "trend", "aggregation"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tag := patterns[(n+j)%len(patterns)]
				cache.Put(tag, &models.LearningInsights{PatternTag: tag, SampleCount: j})
				if got, ok := cache.Get(tag); ok {
					assert.Equal(t, tag, got.PatternTag)
				}
				if j%10 == 0 {
					cache.Invalidate(tag)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryInsightCache_ExpiredEntryMisses(t *testing.T) {
	now := time.Now()
	cache := &memoryInsightCache{
		entries: make(map[string]*models.LearningInsights),
		ttl:     defaultInsightTTL,
		now:     func() time.Time { return now },
	}
	cache.Put("ranking", &models.LearningInsights{PatternTag: "ranking"})

	cache.now = func() time.Time { return now.Add(defaultInsightTTL + time.Second) }

	_, ok := cache.Get("ranking")
	assert.False(t, ok)
}
