package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
)

const (
	sessionName     = "shorturl_session"
	sessionIDKey    = "cid"
	forwardedHeader = "X-Forwarded-For"
)

// IdentityResolver 把一次 HTTP 请求解析成单个“调用方身份”字符串，供幂等指纹使用。
//
// 解析优先级（前一项缺失才尝试下一项）：
//  1. X-Forwarded-For 的第一个逗号分段（去空白）
//  2. 直接观察到的对端地址
//  3. 会话里的匿名标识（没有会话就新建一个）
//
// 注意：转发头是客户端可控的未认证输入，恶意调用方可以伪造别人的去重桶、
// 或者换着头绕开自己的去重桶。这是沿用下来的策略选择，留待后续收紧。
type IdentityResolver struct {
	store sessions.Store
}

func NewIdentityResolver(store sessions.Store) *IdentityResolver {
	return &IdentityResolver{store: store}
}

func (ir *IdentityResolver) Resolve(w http.ResponseWriter, r *http.Request) string {
	if xff := r.Header.Get(forwardedHeader); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		if xff = strings.TrimSpace(xff); xff != "" {
			return xff
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	// 没有任何网络身份（理论路径）：退回匿名会话标识
	session, _ := ir.store.Get(r, sessionName)
	if v, ok := session.Values[sessionIDKey].(string); ok && v != "" {
		return v
	}
	cid := newSessionID()
	session.Values[sessionIDKey] = cid
	_ = session.Save(r, w)
	return cid
}

func newSessionID() string {
	src := make([]byte, 16)
	if _, err := rand.Read(src); err != nil {
		return "anonymous"
	}
	return hex.EncodeToString(src)
}
