// Package leaderboard keeps a Redis-backed ranking of users by average
// performance, updated on every completed assessment.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	rankingKey = "nm:leaderboard"
	totalsKey  = "nm:leaderboard:totals"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank               int     `json:"rank"`
	UserID             string  `json:"user_id"`
	AveragePerformance float64 `json:"average_performance"`
	TotalNegotiations  int     `json:"total_negotiations"`
}

type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis and verifies the connection.
func NewCache(ctx context.Context, addr string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// Record updates a user's standing after an assessment.
func (c *Cache) Record(ctx context.Context, userID string, averagePerformance float64, totalNegotiations int) error {
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, rankingKey, redis.Z{Score: averagePerformance, Member: userID})
	pipe.HSet(ctx, totalsKey, userID, totalNegotiations)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record leaderboard entry: %w", err)
	}
	return nil
}

// Top returns the highest-ranked users, best first.
func (c *Cache) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	ranked, err := c.client.ZRevRangeWithScores(ctx, rankingKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard ranking: %w", err)
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	totals, err := c.client.HGetAll(ctx, totalsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard totals: %w", err)
	}

	entries := make([]Entry, 0, len(ranked))
	for i, z := range ranked {
		userID, _ := z.Member.(string)
		total, _ := strconv.Atoi(totals[userID])
		entries = append(entries, Entry{
			Rank:               i + 1,
			UserID:             userID,
			AveragePerformance: z.Score,
			TotalNegotiations:  total,
		})
	}
	return entries, nil
}

// Remove drops a user from the ranking.
func (c *Cache) Remove(ctx context.Context, userID string) error {
	pipe := c.client.TxPipeline()
	pipe.ZRem(ctx, rankingKey, userID)
	pipe.HDel(ctx, totalsKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove leaderboard entry: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
