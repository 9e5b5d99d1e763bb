package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// LocalCache 是解析路径的 L1 进程内缓存（ristretto）。
// TTL 故意比 Redis 短：多实例部署时减小本地脏数据窗口。
type LocalCache struct {
	cache    *ristretto.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewLocalCache 构造本地缓存。
// maxItems：最大条目数；maxCost：最大内存占用（字节）。
// ttl/emptyTTL 非正值回落到默认（5m / 10s，负缓存更短）。
func NewLocalCache(maxItems int64, maxCost int64, ttl, emptyTTL time.Duration) (*LocalCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10, // 准入计数器，惯例取条目数的 10 倍
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if emptyTTL <= 0 {
		emptyTTL = 10 * time.Second
	}
	return &LocalCache{
		cache:    cache,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}, nil
}

func (l *LocalCache) Get(code string) (string, bool) {
	if v, ok := l.cache.Get(code); ok {
		return v.(string), true
	}
	return "", false
}

func (l *LocalCache) Set(code, url string) {
	// cost=1 表示按条目数限制
	l.cache.SetWithTTL(code, url, 1, l.ttl)
}

func (l *LocalCache) SetNotFound(code string) {
	l.cache.SetWithTTL(code, notFoundSentinel, 1, l.emptyTTL)
}

func (l *LocalCache) Del(code string) {
	l.cache.Del(code)
}

func (l *LocalCache) Close() {
	l.cache.Close()
}
