package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"shorturl.local/internal/app/shortener"
	"shorturl.local/internal/app/shortener/repo"
)

// 本包只做传输层工作：HTTP <-> 领域的翻译（参数解析、错误映射、响应格式）。
// 领域逻辑在 internal/app/shortener，SQL 在 internal/app/shortener/repo。

type ShortenRequest struct {
	URL string `json:"url"`
}

// LinkFinder 是元数据接口需要的只读能力（repo 实现，测试可 mock）。
type LinkFinder interface {
	FindByCode(ctx context.Context, code string) (*repo.ShortLink, error)
}

// NewCreateHandler 处理 POST /api/v1/shortlinks。
// 400 URL 不合法；500 重试耗尽或持久化失败。
func NewCreateHandler(svc shortener.Shortener, ir *IdentityResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ShortenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		callerIdentity := ir.Resolve(w, r)
		result, err := svc.Shorten(r.Context(), req.URL, callerIdentity)
		if err != nil {
			if errors.Is(err, shortener.ErrInvalidURL) {
				writeError(w, http.StatusBadRequest, "Invalid URL format. Please enter a valid URL starting with http:// or https://")
				return
			}
			writeError(w, http.StatusInternalServerError, "An error occurred while shortening the URL. Please try again.")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// NewRedirectHandler 处理 GET /{code}：302 跳转到原始 URL。
func NewRedirectHandler(svc shortener.Shortener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := mux.Vars(r)["code"]
		url, err := svc.Resolve(r.Context(), code)
		if err != nil {
			if errors.Is(err, shortener.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Shortened URL not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

// NewFindHandler 处理 GET /api/v1/shortlinks/{code}：返回记录元数据。
func NewFindHandler(finder LinkFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := mux.Vars(r)["code"]
		link, err := finder.FindByCode(r.Context(), code)
		if err != nil {
			if errors.Is(err, shortener.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Shortened URL not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, link)
	}
}
