package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"researchhub/internal/model"
)

// HistoryCache keeps the most recent chat window per (user, scope). Each
// scope also has a version counter, bumped on every invalidation, so a window
// read before a write cannot be stored after it.
type HistoryCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

// versionTTL outlives any read-then-store gap.
const versionTTL = 24 * time.Hour

type cachedWindow struct {
	Limit    int                 `json:"limit"`
	Messages []model.ChatMessage `json:"messages"`
}

func NewHistoryCache(client *redisv9.Client, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HistoryCache{client: client, ttl: ttl}
}

// GetRecent reports a miss when nothing is cached or the cached window was
// built for a different limit.
func (c *HistoryCache) GetRecent(ctx context.Context, userID uint, scope model.Scope, limit int) ([]model.ChatMessage, bool, error) {
	raw, err := c.client.Get(ctx, RecentKey(userID, scope)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var window cachedWindow
	if err := json.Unmarshal(raw, &window); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	if window.Limit != limit {
		return nil, false, nil
	}
	return window.Messages, true, nil
}

// Version returns the invalidation counter of the scope; 0 if never bumped.
func (c *HistoryCache) Version(ctx context.Context, userID uint, scope model.Scope) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(userID, scope)).Int64()
	if err == redisv9.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get history version failed: %w", err)
	}
	return v, nil
}

// SetRecent stores messages only while the scope is still at version. It
// reports false when an invalidation got there first.
func (c *HistoryCache) SetRecent(ctx context.Context, userID uint, scope model.Scope, limit int, messages []model.ChatMessage, version int64) (bool, error) {
	payload, err := json.Marshal(cachedWindow{Limit: limit, Messages: messages})
	if err != nil {
		return false, fmt.Errorf("marshal history cache failed: %w", err)
	}

	verKey := versionKey(userID, scope)
	stored := false
	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if err != nil && err != redisv9.Nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, RecentKey(userID, scope), payload, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, verKey)
	if errors.Is(err, redisv9.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set history failed: %w", err)
	}
	return stored, nil
}

// Invalidate drops the cached window and bumps the scope version.
func (c *HistoryCache) Invalidate(ctx context.Context, userID uint, scope model.Scope) error {
	verKey := versionKey(userID, scope)
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Del(ctx, RecentKey(userID, scope))
		pipe.Incr(ctx, verKey)
		pipe.Expire(ctx, verKey, versionTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate history failed: %w", err)
	}
	return nil
}

func RecentKey(userID uint, scope model.Scope) string {
	return fmt.Sprintf("chat:recent:%d:%s", userID, scope)
}

func versionKey(userID uint, scope model.Scope) string {
	return RecentKey(userID, scope) + ":ver"
}
