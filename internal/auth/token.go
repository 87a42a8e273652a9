package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource 持有当前会话的 access token。连接层在每次重连前都向它
// 取"当下"的 token，而不是缓存建连时的旧值：登出或被强制下线后
// token 被清空，挂起中的重连会就此放弃。
type TokenSource struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

func NewTokenSource() *TokenSource {
	return &TokenSource{now: time.Now}
}

// Set 替换当前 token（登录或刷新后调用）。
func (s *TokenSource) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear 丢弃当前 token，此后 Token 返回空串。
func (s *TokenSource) Clear() {
	s.Set("")
}

// Token 返回当前可用的 token；token 缺失或已过期时返回空串。
// 客户端没有服务端密钥，无法校验签名，这里只读取未验证的 exp 声明，
// 过期与否最终仍由服务端裁决。
func (s *TokenSource) Token() string {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// 非 JWT 形式的 token 原样返回，由服务端判断。
		return token
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return token
	}
	if exp.Before(s.now()) {
		return ""
	}
	return token
}
