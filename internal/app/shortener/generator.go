package shortener

import (
	"context"
	"errors"
	"log/slog"

	"shorturl.local/internal/platform/metrics"
)

// ErrCodeTaken 表示持久化时撞上了已被占用的短码（唯一约束冲突）。
// Store 实现必须用它区分“短码冲突”和其它存储错误，Generator 据此决定重试还是放弃。
var ErrCodeTaken = errors.New("short code already taken")

// ErrRetriesExhausted 表示重试预算用尽。
// 这不是瞬时故障，而是配置级错误（例如编码最小长度相对分配速率太小），需要大声报警。
var ErrRetriesExhausted = errors.New("short code generation retries exhausted")

// Store 是 Generator 依赖的持久层能力（由 repo 实现）。
type Store interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// Save 在 code 撞唯一约束时必须返回（可被 errors.Is 识别的）ErrCodeTaken。
	Save(ctx context.Context, code string, originalURL string) error
}

// CodeEncoder 把 ID 变成短码（由 Encoder 实现，测试可替换）。
type CodeEncoder interface {
	Encode(id uint64) (string, error)
}

// Generator 组合 Allocator + Encoder，循环对抗短码冲突。
//
// 为什么需要这个循环：
// - “生成短码”（计数器的纯函数）和“占用短码”（对共享存储的写入）不是一个原子步骤。
//   进程重启后的计数器、历史上不同的编码配置、另一个实例，都可能已经占用了
//   某个 ID 对应的短码
// - existsCheck 和 save 之间还有一个 check-then-act 窗口：并发调用者可能在
//   检查之后、写入之前抢先占用同一个短码，所以 Save 的唯一约束冲突也按“冲突”
//   处理并换新 ID 重试，而不是把原始写冲突抛给上层
//
// 循环是一个有重试预算的显式状态机：
// Allocate -> Encode -> CheckExists -> {Retry | Persist} -> {Done | Retry | Fatal}
type Generator struct {
	alloc      *Allocator
	enc        CodeEncoder
	maxRetries int
}

func NewGenerator(alloc *Allocator, enc CodeEncoder, maxRetries int) *Generator {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Generator{alloc: alloc, enc: enc, maxRetries: maxRetries}
}

// Generate 产出一个未被占用的短码并持久化 (code, originalURL)，返回该短码。
func (g *Generator) Generate(ctx context.Context, store Store, originalURL string) (string, error) {
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		id := g.alloc.Next()
		code, err := g.enc.Encode(id)
		if err != nil {
			return "", err
		}

		// 撞上路由保留段（healthz 等）的短码存了也永远解析不到，按冲突换下一个 ID。
		if ValidateCode(code) != nil {
			metrics.ShortcodeCollisions.Inc()
			slog.Debug("short code hits reserved path, retrying", "code", code, "attempt", attempt+1)
			continue
		}

		exists, err := store.ExistsByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if exists {
			metrics.ShortcodeCollisions.Inc()
			slog.Debug("short code collision, retrying", "code", code, "attempt", attempt+1)
			continue
		}

		if err := store.Save(ctx, code, originalURL); err != nil {
			if errors.Is(err, ErrCodeTaken) {
				// existsCheck 和 save 之间被并发调用者抢占，等同冲突。
				metrics.ShortcodeCollisions.Inc()
				slog.Debug("short code claimed concurrently, retrying", "code", code, "attempt", attempt+1)
				continue
			}
			return "", err
		}
		return code, nil
	}

	slog.Error("short code generation exhausted retry budget",
		"max_retries", g.maxRetries,
		"hint", "encoder min length may be too small for current volume")
	return "", ErrRetriesExhausted
}
