package cache

import (
	"context"
	"time"

	"campuswiki/backend/internal/moderation"
)

// ReputationCache 基于 LocalCache 的声誉缓存，Redis 未启用时使用
type ReputationCache struct {
	local *LocalCache
}

// NewReputationCache 创建本地声誉缓存
func NewReputationCache(local *LocalCache) *ReputationCache {
	return &ReputationCache{local: local}
}

// GetReputation 读取缓存的声誉
func (c *ReputationCache) GetReputation(_ context.Context, userID string) (moderation.UserReputation, bool, error) {
	v, ok := c.local.Get(userID)
	if !ok {
		return moderation.UserReputation{}, false, nil
	}
	rep, ok := v.(moderation.UserReputation)
	return rep, ok, nil
}

// SetReputation 缓存声誉，缓存已满时静默跳过
func (c *ReputationCache) SetReputation(_ context.Context, rep moderation.UserReputation, ttl time.Duration) error {
	c.local.Set(rep.UserID, rep, ttl)
	return nil
}

// DeleteReputation 删除缓存的声誉
func (c *ReputationCache) DeleteReputation(_ context.Context, userID string) error {
	c.local.Delete(userID)
	return nil
}
