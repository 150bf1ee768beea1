package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/adeelqureshi/solana-pool-gateway/internal/models"
)

const (
	recentCreationsKey = "pool:creations:recent"
	recentCreationsMax = 200
)

// CreationList keeps the most recent pool creation events in a capped Redis
// list so the dashboard's activity feed never touches ClickHouse.
type CreationList struct {
	client *redis.Client
}

func NewCreationList(client *redis.Client) *CreationList {
	return &CreationList{client: client}
}

func (c *CreationList) AddRecentCreation(ctx context.Context, event *models.PoolCreationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal creation event: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.LPush(ctx, recentCreationsKey, data)
	pipe.LTrim(ctx, recentCreationsKey, 0, recentCreationsMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push creation event: %w", err)
	}
	return nil
}

func (c *CreationList) GetRecentCreations(ctx context.Context, limit int64) ([]*models.PoolCreationEvent, error) {
	if limit <= 0 || limit > recentCreationsMax {
		limit = recentCreationsMax
	}

	raw, err := c.client.LRange(ctx, recentCreationsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent creations: %w", err)
	}

	out := make([]*models.PoolCreationEvent, 0, len(raw))
	for _, item := range raw {
		var event models.PoolCreationEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			continue
		}
		out = append(out, &event)
	}
	return out, nil
}

func (c *CreationList) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CreationList) Close() error {
	return c.client.Close()
}
