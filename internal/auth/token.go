package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager 用两把独立密钥签发和校验 access/refresh token，不访问存储。
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock 替换时间源，测试中用于构造过期 token。
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *TokenManager) Now() time.Time { return m.now() }

func (m *TokenManager) GenerateAccessToken(userID uuid.UUID) (string, time.Time, error) {
	return m.sign(userID, typeAccess, m.accessSecret, m.accessTTL)
}

func (m *TokenManager) GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	return m.sign(userID, typeRefresh, m.refreshSecret, m.refreshTTL)
}

func (m *TokenManager) ParseAccessToken(tokenStr string) (uuid.UUID, error) {
	return m.parse(tokenStr, typeAccess, m.accessSecret)
}

func (m *TokenManager) ParseRefreshToken(tokenStr string) (uuid.UUID, error) {
	return m.parse(tokenStr, typeRefresh, m.refreshSecret)
}

func (m *TokenManager) sign(userID uuid.UUID, typ string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

func (m *TokenManager) parse(tokenStr, typ string, secret []byte) (uuid.UUID, error) {
	if tokenStr == "" {
		return uuid.Nil, ErrTokenMissing
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrTokenInvalid
	}
	if claims.TokenType != typ {
		return uuid.Nil, ErrTokenInvalid
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}

// HashToken 返回 refresh token 的 sha256 十六进制摘要，数据库中只保存摘要。
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
