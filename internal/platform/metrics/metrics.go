package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// once 用来保证指标只注册一次。
	// Prometheus 的 registry 不允许重复注册同名指标，否则会直接 panic。
	once sync.Once

	// HTTPRequestsTotal：累计请求数（Counter），常用于计算 QPS/错误率。
	//
	// labels：
	// - method：HTTP 方法
	// - route：路由模板（用 pattern 而不是带短码的真实 path，否则 label 无限膨胀）
	// - status：HTTP 状态码字符串
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds：请求耗时分布（Histogram），用于算 P95/P99。
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPInflightRequests：当前正在处理中的请求数（Gauge）。
	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// ShortenRequests：成功创建（或幂等复用）短链的次数。
	ShortenRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_shorten_total",
			Help: "Total number of successful shorten operations.",
		},
	)

	// ResolveRequests：成功解析短码的次数。
	ResolveRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_resolve_total",
			Help: "Total number of successful resolve operations.",
		},
	)

	// ShortcodeCollisions：生成短码时撞上已占用短码的次数。
	// 这个值持续走高说明编码最小长度相对分配量太小，需要调配置。
	ShortcodeCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_code_collisions_total",
			Help: "Total number of short code collisions during generation.",
		},
	)

	// IdempotencyCacheOps：幂等缓存操作结果分布。
	// labels：op = get/put/delete，result = hit/miss/stored/conflict/failed
	IdempotencyCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_idempotency_cache_ops_total",
			Help: "Idempotency cache operations by result.",
		},
		[]string{"op", "result"},
	)

	// LinkCacheOps：解析读缓存命中情况。
	// labels：layer = l1/l2，result = hit/hit_negative/miss
	LinkCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_link_cache_ops_total",
			Help: "Resolve read-cache operations by layer and result.",
		},
		[]string{"layer", "result"},
	)
)

// Init 注册指标：只允许注册一次（否则 panic: duplicate metrics collector registration）
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			ShortenRequests,
			ResolveRequests,
			ShortcodeCollisions,
			IdempotencyCacheOps,
			LinkCacheOps,
		)
	})
}
