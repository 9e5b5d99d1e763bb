package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"shorturl.local/internal/platform/metrics"
)

// Outcome 是缓存操作的显式结果。
//
// 设计原因：
// - 幂等缓存是“尽力而为”的去重层，不是数据本身的权威存储。Redis 挂掉时
//   不能让请求失败，但也不应该把失败悄悄吞掉，用显式结果交给调用方决定
//   是记日志还是忽略
type Outcome int

const (
	OutcomeHit      Outcome = iota // 命中有效条目
	OutcomeMiss                    // 无条目 / 已过期 / 类型标签不匹配
	OutcomeStored                  // 写入成功且本调用方是第一个写入者
	OutcomeConflict                // SET NX 落败：别的调用方已先发布结果
	OutcomeDone                    // 删除等无竞争语义的操作成功
	OutcomeFailed                  // 后端不可达 / 超时（按未命中降级，不中断请求）
)

// envelope 是缓存值的序列化信封。
// 缓存对值类型不可知：Type 是调用方声明的类型标签，读取时校验，
// 不匹配按未命中处理（避免跨类型的脏读）。
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// IdempotencyCache 是 Redis 后端的幂等计算缓存。
// 所有操作都带有限定超时：Redis 慢或不可达时快速降级，绝不拖死调用方请求。
type IdempotencyCache struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

func NewIdempotencyCache(client *redis.Client, prefix string, opTimeout time.Duration) *IdempotencyCache {
	if opTimeout <= 0 {
		opTimeout = 100 * time.Millisecond
	}
	return &IdempotencyCache{client: client, prefix: prefix, opTimeout: opTimeout}
}

func (c *IdempotencyCache) key(key string) string {
	return c.prefix + key
}

// Get 读取 key 下与 typ 匹配的条目。
func (c *IdempotencyCache) Get(ctx context.Context, key, typ string) ([]byte, Outcome) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(opCtx, c.key(key)).Bytes()
	if err == redis.Nil {
		metrics.IdempotencyCacheOps.WithLabelValues("get", "miss").Inc()
		return nil, OutcomeMiss
	}
	if err != nil {
		metrics.IdempotencyCacheOps.WithLabelValues("get", "failed").Inc()
		return nil, OutcomeFailed
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type != typ {
		// 脏数据或类型不符：按未命中处理，下一次写入会覆盖
		metrics.IdempotencyCacheOps.WithLabelValues("get", "miss").Inc()
		return nil, OutcomeMiss
	}
	metrics.IdempotencyCacheOps.WithLabelValues("get", "hit").Inc()
	return env.Data, OutcomeHit
}

// PutNX 用 SET NX 发布结果：只有 key 不存在时才写入。
// 并发竞争下恰好一个调用方拿到 OutcomeStored，其余拿到 OutcomeConflict，
// 这保证“恰好一份结果被持久存储”。
func (c *IdempotencyCache) PutNX(ctx context.Context, key, typ string, data []byte, ttl time.Duration) Outcome {
	raw, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		return OutcomeFailed
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	ok, err := c.client.SetNX(opCtx, c.key(key), raw, ttl).Result()
	if err != nil {
		metrics.IdempotencyCacheOps.WithLabelValues("put", "failed").Inc()
		return OutcomeFailed
	}
	if !ok {
		metrics.IdempotencyCacheOps.WithLabelValues("put", "conflict").Inc()
		return OutcomeConflict
	}
	metrics.IdempotencyCacheOps.WithLabelValues("put", "stored").Inc()
	return OutcomeStored
}

// Delete 立即删除条目，不管是否过期。
func (c *IdempotencyCache) Delete(ctx context.Context, key string) Outcome {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(opCtx, c.key(key)).Err(); err != nil {
		metrics.IdempotencyCacheOps.WithLabelValues("delete", "failed").Inc()
		return OutcomeFailed
	}
	return OutcomeDone
}

// Exists 是只读存在性探测，不改变条目状态。
func (c *IdempotencyCache) Exists(ctx context.Context, key string) (bool, Outcome) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	n, err := c.client.Exists(opCtx, c.key(key)).Result()
	if err != nil {
		return false, OutcomeFailed
	}
	return n > 0, OutcomeDone
}

// GetOrCompute 按 key 取缓存结果，未命中则执行 compute 并发布结果。
//
// 语义（严格按顺序）：
//  1. 命中有效条目：直接返回存储值，不执行 compute
//  2. 未命中（含后端故障降级）：执行 compute
//  3. compute 失败：不缓存，错误原样上抛，key 仍可被下一个调用方立即重试
//  4. compute 成功：SET NX 发布。发布不随请求取消而失败（调用方断开
//     不能丢掉已经算完的结果）。落败方读回赢家的值返回。并发冷启动下
//     compute 可能执行多次（compute 本身可安全重复，重复短码会被存在性
//     检查拒绝），但持久存储的结果恰好一份，所有调用方观察到同一个值
//  5. ttl <= 0 或 c == nil：视为不可缓存，每次都直接计算
//
// 缓存后端的任何故障都只会退化为“直接计算”，不会中断请求。
func GetOrCompute[T any](ctx context.Context, c *IdempotencyCache, key, typ string, ttl time.Duration, compute func() (T, error)) (T, error) {
	var zero T
	if c == nil || ttl <= 0 {
		return compute()
	}

	if data, out := c.Get(ctx, key, typ); out == OutcomeHit {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		// 解码失败按未命中降级，走重算
	} else if out == OutcomeFailed {
		slog.Warn("idempotency cache unreachable, falling back to direct compute", "key", shortKey(key))
	}

	v, err := compute()
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		// 序列化失败只影响去重效果，不影响本次结果
		slog.Warn("idempotency cache: result not serializable", "key", shortKey(key))
		return v, nil
	}

	// 发布阶段脱离请求取消：计算已经完成（短码可能已持久占用），
	// 调用方此刻断开也要把结果发布出去，留给后续重试复用。
	pubCtx := context.WithoutCancel(ctx)
	switch c.PutNX(pubCtx, key, typ, data, ttl) {
	case OutcomeConflict:
		// 输掉发布竞争：以赢家存储的结果为准
		if winnerData, out := c.Get(pubCtx, key, typ); out == OutcomeHit {
			var winner T
			if err := json.Unmarshal(winnerData, &winner); err == nil {
				return winner, nil
			}
		}
	case OutcomeFailed:
		slog.Warn("idempotency cache publish failed, result not deduplicated", "key", shortKey(key))
	}
	return v, nil
}

// shortKey 截断指纹用于日志，完整指纹没必要进日志。
func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
