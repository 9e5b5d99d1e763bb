package shortener

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint 从 (原始 URL, 调用方身份) 推导幂等指纹。
//
// 设计原因：
// - 同一个调用方在 TTL 窗口内重复提交同一个 URL，必须落到同一个缓存 key；
//   不同调用方即使 URL 相同也互不去重（各自独立处理）
// - 分隔符用 "\n"：合法 URL 中不可能出现裸换行，拼接无歧义
// - SHA-256 抗碰撞足够；RawURLEncoding 得到定长 43 字符、URL 安全的文本
//
// 本函数不关心 callerIdentity 是怎么来的（转发头/对端地址/会话），
// 身份解析是 HTTP 层的策略，见 httpapi/identity.go。
func Fingerprint(originalURL, callerIdentity string) string {
	sum := sha256.Sum256([]byte(originalURL + "\n" + callerIdentity))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
