package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"videohub/internal/models"
)

// History 维护观看历史与视频播放数。
type History struct {
	db *gorm.DB
}

func NewHistory(db *gorm.DB) *History { return &History{db: db} }

// InsertFirstView 在同一事务中写入观看记录并递增播放数。
// 记录已存在时事务回滚并返回 ErrConflict，播放数不变；视频对 userID 不可见时回滚并返回 ErrNotFound。
func (s *History) InsertFirstView(ctx context.Context, userID, videoID uuid.UUID, at time.Time) (int64, error) {
	var views int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.WatchEntry{UserID: userID, VideoID: videoID, WatchedAt: at}
		if err := tx.Create(&entry).Error; err != nil {
			return translate(err)
		}
		v, err := incrementViews(tx, videoID, userID)
		if err != nil {
			return err
		}
		views = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return views, nil
}

// TouchView 只刷新观看时间。
func (s *History) TouchView(ctx context.Context, userID, videoID uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.WatchEntry{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Update("watched_at", at).Error
}

// IncrementViews 用于匿名访问，只对已发布视频计数。
func (s *History) IncrementViews(ctx context.Context, videoID uuid.UUID) (int64, error) {
	return incrementViews(s.db.WithContext(ctx), videoID, uuid.Nil)
}

// Views 返回 viewer 可见视频的播放数。
func (s *History) Views(ctx context.Context, videoID, viewer uuid.UUID) (int64, error) {
	var v models.Video
	err := s.db.WithContext(ctx).Select("views").
		Where("id = ?", videoID).
		Scopes(visibleTo(viewer)).
		First(&v).Error
	if err != nil {
		return 0, translate(err)
	}
	return v.Views, nil
}

// List 返回用户观看历史，最近观看在前。
func (s *History) List(ctx context.Context, userID uuid.UUID, page Page) ([]models.WatchEntry, error) {
	page = page.normalize()
	var entries []models.WatchEntry
	err := s.db.WithContext(ctx).
		Preload("Video").
		Where("user_id = ?", userID).
		Order("watched_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&entries).Error
	return entries, err
}

func incrementViews(tx *gorm.DB, videoID, viewer uuid.UUID) (int64, error) {
	res := tx.Model(&models.Video{}).
		Where("id = ?", videoID).
		Scopes(visibleTo(viewer)).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	var v models.Video
	if err := tx.Select("views").First(&v, "id = ?", videoID).Error; err != nil {
		return 0, translate(err)
	}
	return v.Views, nil
}
