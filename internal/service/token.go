package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"videohub/internal/auth"
	"videohub/internal/metrics"
	"videohub/internal/models"
	"videohub/internal/store"
)

// CredentialStore 是 token 轮换依赖的用户存储。
type CredentialStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	SwapRefreshToken(ctx context.Context, id uuid.UUID, prevHash, nextHash string, expiresAt time.Time) (bool, error)
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
}

// TokenPair 是一次签发得到的 access/refresh token。
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// TokenService 负责签发、校验与轮换 token。每个用户同一时刻只有一个有效 refresh token。
type TokenService struct {
	tokens *auth.TokenManager
	users  CredentialStore
}

func NewTokenService(tokens *auth.TokenManager, users CredentialStore) *TokenService {
	return &TokenService{tokens: tokens, users: users}
}

// Issue 签发新 token 对并覆盖已保存的 refresh token，旧值立即失效。
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	pair, err := s.mint(userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, userID, auth.HashToken(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return pair, nil
}

// VerifyAccess 只校验签名与有效期。
func (s *TokenService) VerifyAccess(token string) (uuid.UUID, error) {
	return s.tokens.ParseAccessToken(token)
}

// Rotate 用一次性的 refresh token 换取新 token 对。已被轮换过的 token 返回
// auth.ErrTokenReused，不会自动重试。
func (s *TokenService) Rotate(ctx context.Context, presented string) (*TokenPair, error) {
	pair, err := s.rotate(ctx, presented)
	switch {
	case err == nil:
		metrics.TokenRotations.WithLabelValues("ok").Inc()
	case errors.Is(err, auth.ErrTokenReused):
		metrics.TokenRotations.WithLabelValues("reused").Inc()
	default:
		metrics.TokenRotations.WithLabelValues("rejected").Inc()
	}
	return pair, err
}

func (s *TokenService) rotate(ctx context.Context, presented string) (*TokenPair, error) {
	userID, err := s.tokens.ParseRefreshToken(presented)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	prevHash := auth.HashToken(presented)
	stored := user.Refresh.TokenHash
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(prevHash)) != 1 {
		log.Warn().Str("user_id", userID.String()).Int64("version", user.Refresh.Version).Msg("refresh token reuse detected")
		return nil, auth.ErrTokenReused
	}

	pair, err := s.mint(userID)
	if err != nil {
		return nil, err
	}
	swapped, err := s.users.SwapRefreshToken(ctx, userID, prevHash, auth.HashToken(pair.RefreshToken), pair.RefreshExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("swap refresh token: %w", err)
	}
	if !swapped {
		// 并发轮换中另一个请求先完成了替换。
		return nil, auth.ErrTokenReused
	}
	return pair, nil
}

// Revoke 清除用户当前 refresh token（登出）。
func (s *TokenService) Revoke(ctx context.Context, userID uuid.UUID) error {
	return s.users.ClearRefreshToken(ctx, userID)
}

func (s *TokenService) mint(userID uuid.UUID) (*TokenPair, error) {
	at, atExp, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	rt, rtExp, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: at, RefreshToken: rt, AccessExpiresAt: atExp, RefreshExpiresAt: rtExp}, nil
}
