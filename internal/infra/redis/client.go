package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tranvd/aegis/internal/core/domain"
)

// Client wraps Redis operations for the operator escalation queue.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func escalationKey(actor string) string {
	return fmt.Sprintf("escalations:%s", actor)
}

// Enqueue adds an escalation to the actor's queue, ordered by time.
func (c *Client) Enqueue(ctx context.Context, esc domain.Escalation) error {
	member, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("failed to encode escalation: %w", err)
	}

	key := escalationKey(esc.Actor)
	score := float64(esc.At.Unix())

	if err := c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: string(member)}).Err(); err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// Pop removes and returns the oldest pending escalation for an actor.
func (c *Client) Pop(ctx context.Context, actor string) (*domain.Escalation, bool, error) {
	key := escalationKey(actor)

	results, err := c.rdb.ZRange(ctx, key, 0, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("zrange failed: %w", err)
	}
	if len(results) == 0 {
		return nil, false, nil
	}

	member := results[0]
	var esc domain.Escalation
	if err := json.Unmarshal([]byte(member), &esc); err != nil {
		return nil, false, fmt.Errorf("invalid escalation payload: %w", err)
	}

	if err := c.rdb.ZRem(ctx, key, member).Err(); err != nil {
		return nil, false, fmt.Errorf("zrem failed: %w", err)
	}

	return &esc, true, nil
}

// Pending returns all queued escalations for an actor, oldest first.
func (c *Client) Pending(ctx context.Context, actor string) ([]domain.Escalation, error) {
	members, err := c.rdb.ZRange(ctx, escalationKey(actor), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	escalations := make([]domain.Escalation, 0, len(members))
	for _, member := range members {
		var esc domain.Escalation
		if err := json.Unmarshal([]byte(member), &esc); err != nil {
			return nil, fmt.Errorf("invalid escalation payload: %w", err)
		}
		escalations = append(escalations, esc)
	}
	return escalations, nil
}

// Clear removes all queued escalations for an actor.
func (c *Client) Clear(ctx context.Context, actor string) error {
	return c.rdb.Del(ctx, escalationKey(actor)).Err()
}
