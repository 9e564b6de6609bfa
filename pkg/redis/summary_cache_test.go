package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "tax:summary:42", summaryKey(42))
}

func TestSummaryCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	cache := NewSummaryCache(client, time.Minute)
	ctx := context.Background()

	var dest map[string]interface{}
	hit, err := cache.Get(ctx, 1, &dest)
	assert.False(t, hit)
	assert.Error(t, err)

	assert.Error(t, cache.Set(ctx, 1, map[string]int{"payable": 1}))
	assert.Error(t, cache.Invalidate(ctx, 1))
}
