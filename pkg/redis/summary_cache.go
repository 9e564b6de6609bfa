package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// SummaryCache stores dashboard summaries as JSON under tax:summary:<workspace>.
type SummaryCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSummaryCache(client redis.Cmdable, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(workspaceID uint) string {
	return fmt.Sprintf("tax:summary:%d", workspaceID)
}

// Get decodes the cached summary into dest. A miss returns false without error.
func (c *SummaryCache) Get(ctx context.Context, workspaceID uint, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, summaryKey(workspaceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to read cached summary", err, map[string]interface{}{
			"workspace_id": workspaceID,
		})
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn("Discarding undecodable cached summary", map[string]interface{}{
			"workspace_id": workspaceID,
			"error":        err.Error(),
		})
		return false, nil
	}
	return true, nil
}

func (c *SummaryCache) Set(ctx context.Context, workspaceID uint, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, summaryKey(workspaceID), raw, c.ttl).Err(); err != nil {
		logger.Error("Failed to cache summary", err, map[string]interface{}{
			"workspace_id": workspaceID,
		})
		return err
	}
	return nil
}

func (c *SummaryCache) Invalidate(ctx context.Context, workspaceID uint) error {
	if err := c.client.Del(ctx, summaryKey(workspaceID)).Err(); err != nil {
		logger.Error("Failed to invalidate cached summary", err, map[string]interface{}{
			"workspace_id": workspaceID,
		})
		return err
	}
	return nil
}
