package auth

import "videohub/internal/apperr"

var (
	ErrTokenMissing = apperr.New(apperr.Auth, "token missing")
	ErrTokenInvalid = apperr.New(apperr.Auth, "token invalid")
	ErrTokenExpired = apperr.New(apperr.Auth, "token expired")
	// ErrTokenReused 表示 refresh token 已被轮换掉，客户端必须重新登录。
	ErrTokenReused = apperr.New(apperr.Auth, "refresh token expired or already used")
)
