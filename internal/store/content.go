package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"videohub/internal/models"
)

// Comments 存储视频评论。
type Comments struct {
	db *gorm.DB
}

func NewComments(db *gorm.DB) *Comments { return &Comments{db: db} }

func (s *Comments) Create(ctx context.Context, c *models.Comment) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *Comments) Get(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Comments) ListByVideo(ctx context.Context, videoID uuid.UUID, page Page) ([]models.Comment, int64, error) {
	page = page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Comment{}).Where("video_id = ?", videoID)
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Comment
	err := q.Preload("Owner", ownerColumns).
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&out).Error
	return out, total, err
}

func (s *Comments) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Comment, error) {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Comments) Delete(ctx context.Context, id uuid.UUID, likeKind string) error {
	return deleteWithLikes(s.db.WithContext(ctx), &models.Comment{}, id, likeKind)
}

// Tweets 存储频道动态。
type Tweets struct {
	db *gorm.DB
}

func NewTweets(db *gorm.DB) *Tweets { return &Tweets{db: db} }

func (s *Tweets) Create(ctx context.Context, t *models.Tweet) error {
	return translate(s.db.WithContext(ctx).Create(t).Error)
}

func (s *Tweets) Get(ctx context.Context, id uuid.UUID) (*models.Tweet, error) {
	var t models.Tweet
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Tweets) ListByOwner(ctx context.Context, owner uuid.UUID, page Page) ([]models.Tweet, error) {
	page = page.normalize()
	var out []models.Tweet
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&out).Error
	return out, err
}

func (s *Tweets) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Tweet, error) {
	res := s.db.WithContext(ctx).Model(&models.Tweet{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Tweets) Delete(ctx context.Context, id uuid.UUID, likeKind string) error {
	return deleteWithLikes(s.db.WithContext(ctx), &models.Tweet{}, id, likeKind)
}

// Playlists 存储播放列表及其视频关联。
type Playlists struct {
	db *gorm.DB
}

func NewPlaylists(db *gorm.DB) *Playlists { return &Playlists{db: db} }

func (s *Playlists) Create(ctx context.Context, p *models.Playlist) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Playlists) Get(ctx context.Context, id uuid.UUID) (*models.Playlist, error) {
	var p models.Playlist
	if err := s.db.WithContext(ctx).Preload("Videos").First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Playlists) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.Playlist, error) {
	var out []models.Playlist
	err := s.db.WithContext(ctx).Where("owner_id = ?", owner).Order("created_at desc").Find(&out).Error
	return out, err
}

func (s *Playlists) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Playlist, error) {
	res := s.db.WithContext(ctx).Model(&models.Playlist{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Playlists) Delete(ctx context.Context, id uuid.UUID) error {
	p := models.Playlist{Base: models.Base{ID: id}}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&p).Association("Videos").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

const playlistVideosTable = "playlist_videos"

// AddVideo 幂等：已在列表中的视频不会重复加入，视频或列表不存在时返回 ErrNotFound。
func (s *Playlists) AddVideo(ctx context.Context, playlistID, videoID uuid.UUID) error {
	err := s.db.WithContext(ctx).Table(playlistVideosTable).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{"playlist_id": playlistID, "video_id": videoID}).Error
	return translate(err)
}

// RemoveVideo 对不在列表中的视频是空操作。
func (s *Playlists) RemoveVideo(ctx context.Context, playlistID, videoID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Exec("DELETE FROM "+playlistVideosTable+" WHERE playlist_id = ? AND video_id = ?", playlistID, videoID).Error
}

func deleteWithLikes(db *gorm.DB, model interface{}, id uuid.UUID, likeKind string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("target_id = ? AND kind = ?", id, likeKind).Delete(&models.Relation{}).Error
	})
}
