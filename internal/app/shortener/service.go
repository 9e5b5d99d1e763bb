package shortener

import (
	"context"
	"strings"
	"time"

	"shorturl.local/internal/app/shortener/cache"
	"shorturl.local/internal/platform/metrics"
)

// ShortenResult 是“创建短链”的完整响应。
//
// 它同时也是幂等缓存里存储的值：同一个 (URL, 调用方) 在 TTL 窗口内
// 重复请求时，所有调用方拿到的必须是同一份 ShortenResult。
type ShortenResult struct {
	Code        string `json:"code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
	Message     string `json:"message"`
}

// shortenResultType 是幂等缓存信封上的类型标签。
const shortenResultType = "shorten_result"

// LinkStore 是 Service 依赖的完整存储能力（由 repo 实现）。
type LinkStore interface {
	Store
	Resolve(ctx context.Context, code string) (string, error)
}

// Shortener 表达对外暴露的两个用例，便于 HTTP 层 mock。
type Shortener interface {
	Shorten(ctx context.Context, originalURL, callerIdentity string) (ShortenResult, error)
	Resolve(ctx context.Context, code string) (string, error)
}

// Service 把各组件编排成完整的创建/解析流程。
//
// 创建路径：Fingerprint -> 幂等缓存 GetOrCompute -> Generator（分配 ID、
// 编码、防冲突重试、持久化）。
// 解析路径：直接走存储（repo 内部自带读缓存）。解析天然幂等、读多写少，
// 刻意不套指纹/幂等缓存那一层。
type Service struct {
	gen     *Generator
	store   LinkStore
	idem    *cache.IdempotencyCache
	idemTTL time.Duration
	baseURL string
}

func NewService(gen *Generator, store LinkStore, idem *cache.IdempotencyCache, idemTTL time.Duration, baseURL string) *Service {
	return &Service{
		gen:     gen,
		store:   store,
		idem:    idem,
		idemTTL: idemTTL,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Shorten 创建（或在幂等窗口内复用）一条短链。
//
// 错误约定：
// - ErrInvalidURL：URL 语法不合格
// - ErrRetriesExhausted：冲突重试预算用尽（配置级故障）
// - 其它：持久层错误原样上抛；幂等缓存故障不上抛（静默降级为直接计算）
func (s *Service) Shorten(ctx context.Context, originalURL, callerIdentity string) (ShortenResult, error) {
	if err := ValidateURL(originalURL); err != nil {
		return ShortenResult{}, err
	}
	originalURL = strings.TrimSpace(originalURL)

	key := Fingerprint(originalURL, callerIdentity)
	result, err := cache.GetOrCompute(ctx, s.idem, key, shortenResultType, s.idemTTL, func() (ShortenResult, error) {
		// 请求被取消时也让进行中的生成/持久化走完并发布到缓存，
		// 留给后续重试复用，避免留下“已占用但没人知道”的短码。
		computeCtx := context.WithoutCancel(ctx)
		code, err := s.gen.Generate(computeCtx, s.store, originalURL)
		if err != nil {
			return ShortenResult{}, err
		}
		return ShortenResult{
			Code:        code,
			ShortURL:    s.baseURL + "/" + code,
			OriginalURL: originalURL,
			Message:     "Url shortened successfully",
		}, nil
	})
	if err != nil {
		return ShortenResult{}, err
	}
	metrics.ShortenRequests.Inc()
	return result, nil
}

// Resolve 把短码还原成原始 URL，未知短码返回 ErrNotFound。
// 返回的 URL 与写入时逐字节一致：不做任何规范化。
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	if err := ValidateCode(code); err != nil {
		return "", err
	}
	url, err := s.store.Resolve(ctx, code)
	if err != nil {
		return "", err
	}
	metrics.ResolveRequests.Inc()
	return url, nil
}
