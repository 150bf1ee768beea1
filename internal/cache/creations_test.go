package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeelqureshi/solana-pool-gateway/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = client.FlushDB(ctx).Err()
	_ = client.Close()
}

func testEvent(i int) *models.PoolCreationEvent {
	return &models.PoolCreationEvent{
		Signature: fmt.Sprintf("sig%d", i),
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Pool:      fmt.Sprintf("pool%d", i),
		Creator:   "creator",
		Status:    "confirmed",
	}
}

func TestCreationListAddAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	list := NewCreationList(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, list.AddRecentCreation(ctx, testEvent(i)))
	}

	events, err := list.GetRecentCreations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first
	assert.Equal(t, "sig2", events[0].Signature)
	assert.Equal(t, "sig0", events[2].Signature)
}

func TestCreationListHonorsLimit(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	list := NewCreationList(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, list.AddRecentCreation(ctx, testEvent(i)))
	}

	events, err := list.GetRecentCreations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "sig4", events[0].Signature)
	assert.Equal(t, "sig3", events[1].Signature)
}

func TestCreationListCapsLength(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	list := NewCreationList(client)
	ctx := context.Background()

	for i := 0; i < recentCreationsMax+20; i++ {
		require.NoError(t, list.AddRecentCreation(ctx, testEvent(i)))
	}

	length, err := client.LLen(ctx, recentCreationsKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(recentCreationsMax), length)

	events, err := list.GetRecentCreations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, recentCreationsMax)
	assert.Equal(t, fmt.Sprintf("sig%d", recentCreationsMax+19), events[0].Signature)
}

func TestCreationListSkipsCorruptEntries(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	list := NewCreationList(client)
	ctx := context.Background()

	require.NoError(t, list.AddRecentCreation(ctx, testEvent(0)))
	require.NoError(t, client.LPush(ctx, recentCreationsKey, "not json").Err())

	events, err := list.GetRecentCreations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sig0", events[0].Signature)
}
