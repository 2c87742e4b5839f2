package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"videohub/internal/apperr"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	identityKey = "identity"
)

// AccessVerifier 只做无状态校验，不查询数据库。
type AccessVerifier interface {
	VerifyAccess(token string) (uuid.UUID, error)
}

// ExtractAccessToken 优先读取 cookie，其次读取 Authorization: Bearer。
func ExtractAccessToken(c *gin.Context) string {
	if v, err := c.Cookie(AccessCookie); err == nil && v != "" {
		return v
	}
	authz := c.GetHeader("Authorization")
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

// Middleware 拒绝未携带有效 access token 的请求，成功时把身份写入上下文。
func Middleware(v AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.VerifyAccess(ExtractAccessToken(c))
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("reject unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.Message(err)})
			return
		}
		c.Set(identityKey, Authenticated(id))
		c.Next()
	}
}

// Optional 允许匿名访问；携带了 token 但校验失败时仍然拒绝。
func Optional(v AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := ExtractAccessToken(c)
		if tok == "" {
			c.Set(identityKey, Anonymous())
			c.Next()
			return
		}
		id, err := v.VerifyAccess(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.Message(err)})
			return
		}
		c.Set(identityKey, Authenticated(id))
		c.Next()
	}
}

// GetIdentity 返回中间件写入的身份，未经过中间件时视为匿名。
func GetIdentity(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok2 := v.(Identity); ok2 {
			return id
		}
	}
	return Anonymous()
}

// GetUserID 用于受保护路由，未认证时返回 uuid.Nil。
func GetUserID(c *gin.Context) uuid.UUID {
	id, _ := GetIdentity(c).UserID()
	return id
}
