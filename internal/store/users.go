package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"videohub/internal/models"
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users { return &Users{db: db} }

func (s *Users) Create(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Users) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByIdentifier 按用户名或邮箱查找，两者都以小写保存。
func (s *Users) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var u models.User
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Users) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// SetRefreshToken 无条件覆盖当前 refresh token，用于登录时首次签发。
func (s *Users) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"refresh_token_hash": hash,
			"refresh_version":    gorm.Expr("refresh_version + 1"),
			"refresh_expires_at": expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefreshToken 以旧哈希为条件替换 refresh token。并发轮换同一旧 token 时
// 只有一个请求的 UPDATE 命中，其余返回 false。
func (s *Users) SwapRefreshToken(ctx context.Context, id uuid.UUID, prevHash, nextHash string, expiresAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token_hash = ?", id, prevHash).
		Updates(map[string]interface{}{
			"refresh_token_hash": nextHash,
			"refresh_version":    gorm.Expr("refresh_version + 1"),
			"refresh_expires_at": expiresAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Users) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"refresh_token_hash": "",
			"refresh_version":    gorm.Expr("refresh_version + 1"),
			"refresh_expires_at": nil,
		}).Error
}

// UpdatePassword 替换密码哈希并同时作废当前 refresh token。
func (s *Users) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash":      hash,
			"refresh_token_hash": "",
			"refresh_version":    gorm.Expr("refresh_version + 1"),
			"refresh_expires_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile 更新资料字段并返回最新记录。
func (s *Users) UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *Users) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.ToLower(username)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByIDs 批量查询用户，顺序与输入一致，缺失的 id 被跳过。
func (s *Users) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
