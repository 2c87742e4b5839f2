package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"videohub/internal/models"
)

// Relations 存储点赞/订阅等关系记录。
type Relations struct {
	db *gorm.DB
}

func NewRelations(db *gorm.DB) *Relations { return &Relations{db: db} }

func (s *Relations) Find(ctx context.Context, actor, target uuid.UUID, kind string) (*models.Relation, error) {
	var r models.Relation
	err := s.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actor, target, kind).
		First(&r).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// Insert 依赖 idx_relation_key 唯一索引，重复插入返回 ErrConflict。
func (s *Relations) Insert(ctx context.Context, actor, target uuid.UUID, kind string) (*models.Relation, error) {
	r := models.Relation{ActorID: actor, TargetID: target, Kind: kind}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// Delete 删除不存在的记录视为成功。
func (s *Relations) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Relation{}).Error
}

func (s *Relations) Count(ctx context.Context, target uuid.UUID, kind string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Relation{}).
		Where("target_id = ? AND kind = ?", target, kind).
		Count(&n).Error
	return n, err
}

func (s *Relations) CountByActor(ctx context.Context, actor uuid.UUID, kind string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Relation{}).
		Where("actor_id = ? AND kind = ?", actor, kind).
		Count(&n).Error
	return n, err
}

func (s *Relations) Exists(ctx context.Context, actor, target uuid.UUID, kind string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Relation{}).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actor, target, kind).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// TargetsOf 按创建时间倒序返回 actor 关联的目标 id。
func (s *Relations) TargetsOf(ctx context.Context, actor uuid.UUID, kind string, page Page) ([]uuid.UUID, error) {
	page = page.normalize()
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Relation{}).
		Where("actor_id = ? AND kind = ?", actor, kind).
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Pluck("target_id", &ids).Error
	return ids, err
}
