package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"shorturl.local/internal/platform/metrics"
)

const notFoundSentinel = "__nil__"

// LinkCache 是解析路径（code -> url）的读加速缓存：L1 本地 + L2 Redis。
//
// 只服务延迟，不服务正确性：任何不一致都会在 TTL 内收敛到数据库真值。
// 记录写入后不可变，所以不存在“缓存旧值”问题，只有“负缓存未失效”问题，
// 由创建路径写入覆盖解决。
type LinkCache struct {
	client   *redis.Client
	local    *LocalCache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewLinkCache 构造两级读缓存。ttl/emptyTTL 非正值回落到默认（1h / 30s）。
func NewLinkCache(client *redis.Client, local *LocalCache, ttl, emptyTTL time.Duration) *LinkCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if emptyTTL <= 0 {
		emptyTTL = 30 * time.Second
	}
	return &LinkCache{
		client:   client,
		local:    local,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

// Get 返回缓存的 url。三种情况：
// - ("", false)：未命中，去查数据库
// - (url, true)：命中
// - ("", true)：命中负缓存，确定不存在
func (c *LinkCache) Get(ctx context.Context, code string) (string, bool) {
	if c.local != nil {
		if url, ok := c.local.Get(code); ok {
			if url == notFoundSentinel {
				metrics.LinkCacheOps.WithLabelValues("l1", "hit_negative").Inc()
				return "", true
			}
			metrics.LinkCacheOps.WithLabelValues("l1", "hit").Inc()
			return url, true
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	res, err := c.client.Get(opCtx, "su:"+code).Result()
	if err != nil {
		// redis.Nil 和网络故障都按未命中降级
		metrics.LinkCacheOps.WithLabelValues("l2", "miss").Inc()
		return "", false
	}

	// 回填 L1
	if c.local != nil {
		if res == notFoundSentinel {
			c.local.SetNotFound(code)
		} else {
			c.local.Set(code, res)
		}
	}
	if res == notFoundSentinel {
		metrics.LinkCacheOps.WithLabelValues("l2", "hit_negative").Inc()
		return "", true
	}
	metrics.LinkCacheOps.WithLabelValues("l2", "hit").Inc()
	return res, true
}

func (c *LinkCache) Set(ctx context.Context, code, url string) error {
	if c.local != nil {
		c.local.Set(code, url)
	}
	opCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	return c.client.Set(opCtx, "su:"+code, url, c.ttl).Err()
}

// SetNotFound 写负缓存，防穿透。
// 用明确哨兵值而不是空串：空串会把“未命中”和“命中空值”混为一谈。
func (c *LinkCache) SetNotFound(ctx context.Context, code string) error {
	if c.local != nil {
		c.local.SetNotFound(code)
	}
	opCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	return c.client.Set(opCtx, "su:"+code, notFoundSentinel, c.emptyTTL).Err()
}

func (c *LinkCache) Delete(ctx context.Context, code string) error {
	if c.local != nil {
		c.local.Del(code)
	}
	opCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	return c.client.Del(opCtx, "su:"+code).Err()
}

func (c *LinkCache) Close() {
	if c.local != nil {
		c.local.Close()
	}
}
