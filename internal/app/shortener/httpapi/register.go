package httpapi

import (
	"time"

	"github.com/gorilla/mux"

	"shorturl.local/internal/app/shortener"
	"shorturl.local/internal/platform/httpmiddleware"
	"shorturl.local/internal/platform/ratelimit"
)

// RegisterAPIRoutes 在 /api/v1 分组下挂载机器调用（JSON）路由。
//
// 设计原因：
// - cmd/api 只负责组装和挂载，路由定义收在业务包里，避免散落在 main.go
// - 创建接口限流比跳转严：写路径贵（分配 ID + 落库），读路径便宜
func RegisterAPIRoutes(api *mux.Router, svc shortener.Shortener, finder LinkFinder, ir *IdentityResolver, limiter *ratelimit.Limiter) {
	create := httpmiddleware.RateLimit(limiter, "create", 10, time.Minute)
	api.Handle("/shortlinks", create(NewCreateHandler(svc, ir))).Methods("POST")
	api.Handle("/shortlinks/{code}", NewFindHandler(finder)).Methods("GET")
}

// RegisterPublicRoutes 在根路由上挂载跳转入口。
//
// 跳转刻意不放在 /api/v1 下：短链的使用体验是直接在浏览器输入 /{code}。
// 注意这条是 catch-all，必须最后注册，且保留字短码在领域层被拒绝。
func RegisterPublicRoutes(r *mux.Router, svc shortener.Shortener, limiter *ratelimit.Limiter) {
	redirect := httpmiddleware.RateLimit(limiter, "redirect", 100, time.Minute)
	r.Handle("/{code}", redirect(NewRedirectHandler(svc))).Methods("GET")
}
