package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"shorturl.local/internal/app/shortener"
	slcache "shorturl.local/internal/app/shortener/cache"
	"shorturl.local/internal/app/shortener/httpapi"
	"shorturl.local/internal/app/shortener/repo"
	platformcache "shorturl.local/internal/platform/cache"
	"shorturl.local/internal/platform/config"
	"shorturl.local/internal/platform/db"
	"shorturl.local/internal/platform/httpmiddleware"
	"shorturl.local/internal/platform/httpserver"
	"shorturl.local/internal/platform/metrics"
	"shorturl.local/internal/platform/ratelimit"
	"shorturl.local/internal/platform/trace"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg := config.Load()

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	slog.SetDefault(slog.New(h))

	// DB
	dbCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	dbPool, errDB := db.New(dbCtx, cfg.DBDSN)
	if errDB != nil {
		log.Fatal(errDB)
	}
	defer dbPool.Close()
	if err := dbPool.Ping(dbCtx); err != nil {
		log.Fatal(err)
	}
	slog.Info("database connected")

	// Redis
	redisClient, errRedis := platformcache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if errRedis != nil {
		log.Fatal(errRedis)
	}
	defer redisClient.Close()

	// 限流器
	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewLimiter(redisClient)
	} else {
		slog.Warn("RateLimit disabled by config", "RATELIMIT_ENABLED", false)
	}

	// 解析读缓存：L1 本地 + L2 Redis
	localCache, errLocal := slcache.NewLocalCache(100000, 1<<24, // 10万条目，16MB
		cfg.LocalCacheTTL, cfg.LocalCacheNegativeTTL)
	if errLocal != nil {
		log.Fatal(errLocal)
	}
	linkCache := slcache.NewLinkCache(redisClient, localCache, cfg.LinkCacheTTL, cfg.LinkCacheNegativeTTL)
	defer linkCache.Close()

	// 布隆过滤器：预期 100 万短码，1% 误判率
	bloomFilter := slcache.NewBloomFilter(1_000_000, 0.01)

	linksRepo := repo.NewShortLinksRepo(dbPool, linkCache, bloomFilter)
	if err := linksRepo.WarmBloom(context.Background()); err != nil {
		slog.Warn("bloom warmup failed, existence checks fall back to DB", "err", err)
	}

	// 领域核心：编码器 + 分配器 + 生成器 + 幂等缓存
	encoder, errEnc := shortener.NewEncoder(cfg.EncoderAlphabet, cfg.EncoderMinLength)
	if errEnc != nil {
		log.Fatal(errEnc)
	}
	allocator := shortener.NewAllocator(cfg.IDOffset)
	generator := shortener.NewGenerator(allocator, encoder, cfg.GeneratorMaxRetries)
	idemCache := slcache.NewIdempotencyCache(redisClient, cfg.CacheKeyPrefix, cfg.CacheOpTimeout)
	svc := shortener.NewService(generator, linksRepo, idemCache, cfg.IdempotencyTTL, cfg.BaseURL)

	// 调用方身份解析（会话兜底）
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	identityResolver := httpapi.NewIdentityResolver(sessionStore)

	metrics.Init()

	if cfg.TracingEnabled {
		shutdown := trace.InitTrace(cfg.OtlpGrpcEndpoint, cfg.OtlpServiceName)
		if shutdown == nil {
			slog.Error("trace init failed")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					slog.Error(err.Error())
				}
			}()
		}
	}

	// 对外业务
	r := mux.NewRouter()
	r.Use(httpmiddleware.RequestID, httpmiddleware.AccessLog, httpmiddleware.Metrics)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	httpapi.RegisterAPIRoutes(api, svc, linksRepo, identityResolver, limiter)
	// catch-all 跳转必须最后挂载
	httpapi.RegisterPublicRoutes(r, svc, limiter)

	publicHandler := http.Handler(r)
	if cfg.TracingEnabled {
		publicHandler = otelhttp.NewHandler(r, "http")
	}
	publicSrv := httpserver.New(httpserver.Options{
		Addr:              cfg.Addr,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}, publicHandler)

	// 仅本机/内网
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("DB Ping Err"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("DB ready"))
	})
	adminMux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"service_name": cfg.ServiceName,
			"version":      version,
			"commit":       commit,
			"build_time":   buildTime,
			"go_version":   runtime.Version(),
		})
	})
	if cfg.PprofEnabled {
		adminMux.HandleFunc("/debug/pprof/", pprof.Index)
		adminMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		adminMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		adminMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		adminMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	adminSrv := httpserver.New(httpserver.Options{
		Addr:              cfg.AdminAddr, // 推荐：127.0.0.1:6060
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}, adminMux)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errch := make(chan error, 2)
	go func() {
		errch <- httpserver.Run(publicSrv, cfg.ShutdownTimeout, stopCtx)
	}()
	go func() {
		errch <- httpserver.Run(adminSrv, cfg.ShutdownTimeout, stopCtx)
	}()

	err := <-errch
	if err != nil {
		stop()
		select {
		case <-errch:
		case <-time.After(cfg.ShutdownTimeout + time.Second):
		}
		log.Fatal(err)
	}

	stop()
	<-errch
}
