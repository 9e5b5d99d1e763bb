package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// New 创建 pgx 连接池。池参数走 DSN（pool_max_conns 等），这里不再重复配置。
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}
