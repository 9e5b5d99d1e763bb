package shortener

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL 是领域层对“URL 不合法”的统一错误。
// 上层（HTTP）可以稳定地把它映射成 400，而不需要关心底层校验细节。
var ErrInvalidURL = errors.New("invalid url")

// ErrNotFound 表示短码不存在（或格式根本不可能是合法短码）。
var ErrNotFound = errors.New("short link not found")

// ValidateURL 校验用户输入的 URL 是否满足短链服务的最小要求。
//
// 规则：
// - 非空（去掉首尾空白后）
// - scheme 必须是 http/https
// - host 不能为空
//
// 注意：这里只做语法校验，不做规范化。尾部斜杠、query 参数顺序不同的 URL
// 一律按不同 URL 处理。
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return ErrInvalidURL
	}
	return nil
}

var codeRe = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

// 与站点路由前缀冲突的保留字（/{code} 是根路径上的 catch-all）。
var reservedCodes = map[string]struct{}{
	"api":     {},
	"healthz": {},
	"favicon": {},
}

// ValidateCode 判断一个路径段是否可能是合法短码。
// 不合法的直接按 NotFound 处理，省掉一次存储查询。
func ValidateCode(code string) error {
	if !codeRe.MatchString(code) {
		return ErrNotFound
	}
	if _, ok := reservedCodes[strings.ToLower(code)]; ok {
		return ErrNotFound
	}
	return nil
}
