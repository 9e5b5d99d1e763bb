package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shorturl.local/internal/app/shortener"
	"shorturl.local/internal/app/shortener/cache"
)

// ShortLink 是持久化的映射记录 (code, original_url, created_at)。
// 写入一次之后不可变；删除由本服务之外的流程负责。
type ShortLink struct {
	Code        string    `json:"code"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShortLinksRepo 是 shortened_urls 表的数据访问层。
// 同时挂了读缓存（L1/L2）和布隆过滤器（加速 Generator 的存在性检查）。
type ShortLinksRepo struct {
	db    *pgxpool.Pool
	cache *cache.LinkCache
	bloom *cache.BloomFilter
}

func NewShortLinksRepo(db *pgxpool.Pool, linkCache *cache.LinkCache, bloom *cache.BloomFilter) *ShortLinksRepo {
	return &ShortLinksRepo{db: db, cache: linkCache, bloom: bloom}
}

// WarmBloom 启动时把已有短码灌进布隆过滤器。
// 失败只降级（过滤器空等于全部走库查询），不阻止启动。
func (r *ShortLinksRepo) WarmBloom(ctx context.Context) error {
	if r.bloom == nil {
		return nil
	}
	dbctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := r.db.Query(dbctx, "SELECT code FROM shortened_urls")
	if err != nil {
		return err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return err
		}
		r.bloom.Add(code)
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	slog.Info("bloom filter warmed", "codes", n)
	return nil
}

// ExistsByCode 探测短码是否已被占用。
// 布隆过滤器说“一定没有”时直接短路，省掉一次数据库往返；
// 说“可能有”时仍以数据库为准（过滤器有误判率）。
func (r *ShortLinksRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if r.bloom != nil && !r.bloom.MightExist(code) {
		return false, nil
	}

	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	var exists bool
	if err := r.db.
		QueryRow(dbctx, "SELECT EXISTS(SELECT 1 FROM shortened_urls WHERE code=$1)", code).
		Scan(&exists); err != nil {
		slog.Error("exists check failed", "err", err)
		return false, err
	}
	return exists, nil
}

// Save 持久化 (code, originalURL)。
// code 的唯一约束冲突会被映射成 shortener.ErrCodeTaken，让 Generator
// 能把“真正的短码冲突”和其它存储故障区分开。
func (r *ShortLinksRepo) Save(ctx context.Context, code string, originalURL string) error {
	dbctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.Exec(dbctx,
		"INSERT INTO shortened_urls (code, original_url) VALUES ($1, $2)",
		code, originalURL)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" &&
			strings.Contains(strings.ToLower(pgErr.ConstraintName), "code") {
			return fmt.Errorf("save %q: %w", code, shortener.ErrCodeTaken)
		}
		slog.Error("save failed", "err", err)
		return err
	}

	if r.bloom != nil {
		r.bloom.Add(code)
	}
	// 写缓存/覆盖负缓存：创建成功后立刻写入，避免此前命中哨兵值导致短码暂时不可解析。
	if r.cache != nil {
		_ = r.cache.Set(ctx, code, originalURL)
	}
	return nil
}

// FindByCode 查整条记录（元数据接口用），不存在返回 shortener.ErrNotFound。
func (r *ShortLinksRepo) FindByCode(ctx context.Context, code string) (*ShortLink, error) {
	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	var link ShortLink
	if err := r.db.
		QueryRow(dbctx, "SELECT code, original_url, created_at FROM shortened_urls WHERE code=$1", code).
		Scan(&link.Code, &link.OriginalURL, &link.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}
		slog.Error("find by code failed", "err", err)
		return nil, err
	}
	return &link, nil
}

// Resolve 是热路径：先走缓存（含负缓存），未命中再查库并回填。
func (r *ShortLinksRepo) Resolve(ctx context.Context, code string) (string, error) {
	if r.cache != nil {
		if url, ok := r.cache.Get(ctx, code); ok {
			if url == "" {
				return "", shortener.ErrNotFound // 负缓存命中
			}
			return url, nil
		}
	}

	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	var url string
	if err := r.db.
		QueryRow(dbctx, "SELECT original_url FROM shortened_urls WHERE code=$1", code).
		Scan(&url); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if r.cache != nil {
				_ = r.cache.SetNotFound(ctx, code)
			}
			return "", shortener.ErrNotFound
		}
		slog.Error("resolve failed", "err", err)
		return "", err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, code, url)
	}
	return url, nil
}
