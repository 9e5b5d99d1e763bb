package httpmiddleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"shorturl.local/internal/platform/ratelimit"
)

var rateLimitMemberSeq uint64

// RateLimit 按客户端 IP 做滑动窗口限流。limiter 为 nil 时直接放行。
func RateLimit(limiter *ratelimit.Limiter, prefix string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			var builder strings.Builder
			builder.WriteString("rl:")
			builder.WriteString(prefix)
			builder.WriteString(":")
			builder.WriteString(ClientIP(r))
			key := builder.String()

			// member 必须每次请求唯一，否则 ZADD 会覆盖同一个 member。
			// UnixNano 在虚拟化环境下可能短时间重复，拼上序列号保证唯一。
			member := strconv.FormatInt(time.Now().UnixNano(), 10) + "-" +
				strconv.FormatUint(atomic.AddUint64(&rateLimitMemberSeq, 1), 10)

			rlCtx, cancel := context.WithTimeout(r.Context(), 50*time.Millisecond)
			defer cancel()
			allowed, retryAfter, err := limiter.Allow(rlCtx, key, limit, window, member)
			if err != nil {
				slog.Error("rate limit check failed", "err", err)
				next.ServeHTTP(w, r) // Redis 故障时放行
				return
			}
			if !allowed {
				if retryAfter > 0 {
					// 标准语义：Retry-After 单位是秒，向上取整。
					secs := int64((retryAfter + time.Second - 1) / time.Second)
					w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
				}
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
