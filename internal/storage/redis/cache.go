package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"campuswiki/backend/internal/moderation"
)

const reputationKeyPrefix = "campuswiki:reputation:"

// ReputationCache 基于 Redis 的声誉缓存，实现 moderation.ReputationCache
type ReputationCache struct {
	client *Client
}

// NewReputationCache 创建声誉缓存
func NewReputationCache(client *Client) *ReputationCache {
	return &ReputationCache{client: client}
}

func reputationKey(userID string) string {
	return reputationKeyPrefix + userID
}

// GetReputation 读取缓存的声誉，未命中时返回 false
func (c *ReputationCache) GetReputation(ctx context.Context, userID string) (moderation.UserReputation, bool, error) {
	data, err := c.client.rdb.Get(ctx, reputationKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return moderation.UserReputation{}, false, nil
		}
		return moderation.UserReputation{}, false, err
	}

	var rep moderation.UserReputation
	if err := json.Unmarshal(data, &rep); err != nil {
		return moderation.UserReputation{}, false, fmt.Errorf("decode cached reputation: %w", err)
	}
	return rep, true, nil
}

// SetReputation 缓存声誉
func (c *ReputationCache) SetReputation(ctx context.Context, rep moderation.UserReputation, ttl time.Duration) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return c.client.rdb.Set(ctx, reputationKey(rep.UserID), data, ttl).Err()
}

// DeleteReputation 删除缓存的声誉
func (c *ReputationCache) DeleteReputation(ctx context.Context, userID string) error {
	return c.client.rdb.Del(ctx, reputationKey(userID)).Err()
}
