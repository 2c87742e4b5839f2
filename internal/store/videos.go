package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"videohub/internal/models"
)

type Videos struct {
	db *gorm.DB
}

func NewVideos(db *gorm.DB) *Videos { return &Videos{db: db} }

// VideoFilter 描述列表查询条件，SortBy 只接受白名单中的列。
type VideoFilter struct {
	Query         string
	OwnerID       uuid.UUID
	SortBy        string
	Ascending     bool
	PublishedOnly bool
	Page          Page
}

// likeEscaper 让用户输入中的 LIKE 通配符按字面匹配（PostgreSQL 默认转义符为反斜杠）。
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var videoSortColumns = map[string]string{
	"createdAt": "created_at",
	"views":     "views",
	"duration":  "duration",
	"title":     "title",
}

// visibleTo 限定为已发布或属于 viewer 的视频，viewer 为 uuid.Nil 时只看已发布。
func visibleTo(viewer uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewer == uuid.Nil {
			return db.Where("is_published = ?", true)
		}
		return db.Where("(is_published = ? OR owner_id = ?)", true, viewer)
	}
}

func ownerColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "full_name", "avatar")
}

func (s *Videos) Create(ctx context.Context, v *models.Video) error {
	return translate(s.db.WithContext(ctx).Create(v).Error)
}

func (s *Videos) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	var v models.Video
	if err := s.db.WithContext(ctx).Preload("Owner", ownerColumns).First(&v, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (s *Videos) List(ctx context.Context, f VideoFilter) ([]models.Video, int64, error) {
	page := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Video{})
	if f.Query != "" {
		like := "%" + likeEscaper.Replace(f.Query) + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}
	if f.OwnerID != uuid.Nil {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.PublishedOnly {
		q = q.Where("is_published = ?", true)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := videoSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := " desc"
	if f.Ascending {
		dir = " asc"
	}
	var videos []models.Video
	err := q.Preload("Owner", ownerColumns).
		Order(col + dir).
		Limit(page.Limit).Offset(page.Offset).
		Find(&videos).Error
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// FindByIDs 批量查询视频，顺序与输入一致。
func (s *Videos) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Video, error) {
	if len(ids) == 0 {
		return []models.Video{}, nil
	}
	var videos []models.Video
	if err := s.db.WithContext(ctx).Preload("Owner", ownerColumns).Where("id IN ?", ids).Find(&videos).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	out := make([]models.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Videos) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Video, error) {
	res := s.db.WithContext(ctx).Model(&models.Video{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete 在同一事务中删除视频、视频下的评论，以及两者上的点赞记录。
func (s *Videos) Delete(ctx context.Context, id uuid.UUID, videoLikeKind, commentLikeKind string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := tx.Model(&models.Comment{}).Select("id").Where("video_id = ?", id)
		if err := tx.Where("kind = ? AND target_id IN (?)", commentLikeKind, comments).Delete(&models.Relation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("video_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Video{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("target_id = ? AND kind = ?", id, videoLikeKind).Delete(&models.Relation{}).Error
	})
}

// ChannelStats 是频道汇总数据。
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
}

func (s *Videos) ChannelStats(ctx context.Context, owner uuid.UUID, likeKind, subscribeKind string) (ChannelStats, error) {
	var st ChannelStats
	db := s.db.WithContext(ctx)

	var agg struct {
		Count int64
		Views int64
	}
	if err := db.Model(&models.Video{}).
		Select("COUNT(*) AS count, COALESCE(SUM(views), 0) AS views").
		Where("owner_id = ?", owner).
		Scan(&agg).Error; err != nil {
		return st, err
	}
	st.TotalVideos, st.TotalViews = agg.Count, agg.Views

	if err := db.Model(&models.Relation{}).
		Where("target_id = ? AND kind = ?", owner, subscribeKind).
		Count(&st.TotalSubscribers).Error; err != nil {
		return st, err
	}

	owned := db.Model(&models.Video{}).Select("id").Where("owner_id = ?", owner)
	if err := db.Model(&models.Relation{}).
		Where("kind = ? AND target_id IN (?)", likeKind, owned).
		Count(&st.TotalLikes).Error; err != nil {
		return st, err
	}
	return st, nil
}
