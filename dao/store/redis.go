package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/dingzu/dramagic/models"
)

// 上游查询结果缓存的存活时间。够挡住前端的高频刷新，又不至于看到太陈旧的状态。
const statusTTL = 20 * time.Second

// Init 初始化Redis连接。
func Init(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// StatusCache 缓存上游任务状态查询结果，key 按 (source, 上游任务ID) 区分。
// 缓存读写失败只记日志不报错，缓存不可用时直接打上游。
type StatusCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewStatusCache(client *redis.Client, logger *zap.Logger) *StatusCache {
	return &StatusCache{client: client, logger: logger.Named("status_cache")}
}

func cacheKey(source, providerTaskID string) string {
	return "video:src:" + source + ":task:" + providerTaskID
}

// Set 写入一条状态，带 TTL。
func (c *StatusCache) Set(ctx context.Context, source, providerTaskID string, st *models.ProviderStatus) {
	if c == nil || c.client == nil {
		return
	}
	b, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(source, providerTaskID), b, statusTTL).Err(); err != nil {
		c.logger.Warn("failed to cache provider status",
			zap.String("source", source), zap.Error(err))
	}
}

// Get 命中返回缓存状态，未命中或缓存不可用返回 nil。
func (c *StatusCache) Get(ctx context.Context, source, providerTaskID string) *models.ProviderStatus {
	if c == nil || c.client == nil {
		return nil
	}
	b, err := c.client.Get(ctx, cacheKey(source, providerTaskID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("failed to read provider status cache",
				zap.String("source", source), zap.Error(err))
		}
		return nil
	}
	var st models.ProviderStatus
	if err := json.Unmarshal(b, &st); err != nil {
		return nil
	}
	return &st
}
