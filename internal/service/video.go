package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"videohub/internal/auth"
	"videohub/internal/media"
	"videohub/internal/models"
	"videohub/internal/store"
)

// VideoStore 是视频的持久化协作方。
type VideoStore interface {
	Create(ctx context.Context, v *models.Video) error
	Get(ctx context.Context, id uuid.UUID) (*models.Video, error)
	List(ctx context.Context, f store.VideoFilter) ([]models.Video, int64, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Video, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Video, error)
	Delete(ctx context.Context, id uuid.UUID, videoLikeKind, commentLikeKind string) error
	ChannelStats(ctx context.Context, owner uuid.UUID, likeKind, subscribeKind string) (store.ChannelStats, error)
}

type VideoService struct {
	videos  VideoStore
	toggles *ToggleService
	media   Uploader
}

func NewVideoService(videos VideoStore, toggles *ToggleService, uploader Uploader) *VideoService {
	return &VideoService{videos: videos, toggles: toggles, media: uploader}
}

// ListQuery 对应视频列表的查询参数。
type ListQuery struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string
	SortType string
	OwnerID  uuid.UUID
}

// PageMeta 是分页元数据。
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

func newPageMeta(total int64, page, limit int) PageMeta {
	return PageMeta{Total: total, Page: page, Limit: limit, TotalPages: (total + int64(limit) - 1) / int64(limit)}
}

// PageOf 把从 1 开始的页码换算成偏移量，非法值按第一页、每页 10 条处理。
func PageOf(page, limit int) (store.Page, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return store.Page{Limit: limit, Offset: (page - 1) * limit}, page, limit
}

// List 只返回已发布视频。
func (s *VideoService) List(ctx context.Context, q ListQuery) ([]models.Video, PageMeta, error) {
	p, page, limit := PageOf(q.Page, q.Limit)
	videos, total, err := s.videos.List(ctx, store.VideoFilter{
		Query:         strings.TrimSpace(q.Query),
		OwnerID:       q.OwnerID,
		SortBy:        q.SortBy,
		Ascending:     strings.EqualFold(q.SortType, "asc"),
		PublishedOnly: true,
		Page:          p,
	})
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("list videos: %w", err)
	}
	return videos, newPageMeta(total, page, limit), nil
}

// Suggestions 返回标题匹配 query 的已发布视频标题，用于搜索框补全。
func (s *VideoService) Suggestions(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	videos, _, err := s.videos.List(ctx, store.VideoFilter{
		Query:         query,
		SortBy:        "views",
		PublishedOnly: true,
		Page:          store.Page{Limit: 5},
	})
	if err != nil {
		return nil, fmt.Errorf("search suggestions: %w", err)
	}
	titles := make([]string, 0, len(videos))
	seen := make(map[string]struct{}, len(videos))
	for _, v := range videos {
		if _, ok := seen[v.Title]; ok {
			continue
		}
		seen[v.Title] = struct{}{}
		titles = append(titles, v.Title)
	}
	return titles, nil
}

// PublishInput 是发布视频所需数据。
type PublishInput struct {
	Title       string
	Description string
	Duration    float64
	VideoFile   *media.File
	Thumbnail   *media.File
}

// Publish 上传视频文件与缩略图后写入记录，失败时删除已上传的对象。
func (s *VideoService) Publish(ctx context.Context, owner uuid.UUID, in PublishInput) (*models.Video, error) {
	in.Title, in.Description = strings.TrimSpace(in.Title), strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return nil, validationError("title and description are required")
	}
	if in.VideoFile == nil || in.Thumbnail == nil {
		return nil, ErrMediaRequired
	}
	if in.Duration < 0 {
		return nil, validationError("duration must not be negative")
	}
	videoRes, err := s.media.Upload(ctx, "videos", *in.VideoFile)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	thumbRes, err := s.media.Upload(ctx, "thumbnails", *in.Thumbnail)
	if err != nil {
		s.discard(ctx, videoRes.Key)
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}
	v := models.Video{
		OwnerID:     owner,
		VideoFile:   videoRes.URL,
		Thumbnail:   thumbRes.URL,
		Title:       in.Title,
		Description: in.Description,
		Duration:    in.Duration,
		IsPublished: true,
	}
	if err := s.videos.Create(ctx, &v); err != nil {
		s.discard(ctx, videoRes.Key, thumbRes.Key)
		return nil, fmt.Errorf("create video: %w", err)
	}
	return &v, nil
}

// Get 未发布的视频只对所有者可见，其他人得到 ErrVideoNotFound。
func (s *VideoService) Get(ctx context.Context, id uuid.UUID, viewer auth.Identity) (*models.Video, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(v, viewer) {
		return nil, ErrVideoNotFound
	}
	return v, nil
}

func visibleTo(v *models.Video, viewer auth.Identity) bool {
	if v.IsPublished {
		return true
	}
	uid, ok := viewer.UserID()
	return ok && uid == v.OwnerID
}

// UpdateInput 中为空的字段保持不变。
type UpdateInput struct {
	Title       string
	Description string
	Thumbnail   *media.File
}

func (s *VideoService) Update(ctx context.Context, actor, id uuid.UUID, in UpdateInput) (*models.Video, error) {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if t := strings.TrimSpace(in.Title); t != "" {
		fields["title"] = t
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		fields["description"] = d
	}
	var uploaded string
	if in.Thumbnail != nil {
		res, err := s.media.Upload(ctx, "thumbnails", *in.Thumbnail)
		if err != nil {
			return nil, fmt.Errorf("upload thumbnail: %w", err)
		}
		uploaded = res.Key
		fields["thumbnail"] = res.URL
	}
	if len(fields) == 0 {
		return nil, validationError("nothing to update")
	}
	v, err := s.videos.Update(ctx, id, fields)
	if err != nil {
		if uploaded != "" {
			s.discard(ctx, uploaded)
		}
		return nil, videoErr(err, "update video")
	}
	return v, nil
}

func (s *VideoService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.videos.Delete(ctx, id, string(KindVideo), string(KindComment)); err != nil {
		return videoErr(err, "delete video")
	}
	return nil
}

// TogglePublish 翻转发布状态并返回更新后的视频。
func (s *VideoService) TogglePublish(ctx context.Context, actor, id uuid.UUID) (*models.Video, error) {
	v, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.videos.Update(ctx, id, map[string]interface{}{"is_published": !v.IsPublished})
	if err != nil {
		return nil, videoErr(err, "toggle publish")
	}
	return updated, nil
}

// LikedVideos 按点赞时间倒序返回用户点赞过的视频。
func (s *VideoService) LikedVideos(ctx context.Context, userID uuid.UUID, page store.Page) ([]models.Video, error) {
	ids, err := s.toggles.Targets(ctx, userID, KindVideo, page)
	if err != nil {
		return nil, fmt.Errorf("list liked videos: %w", err)
	}
	return s.videos.FindByIDs(ctx, ids)
}

// Exists 校验视频对 viewer 可见，规则与 Get 相同。
func (s *VideoService) Exists(ctx context.Context, id uuid.UUID, viewer auth.Identity) error {
	_, err := s.Get(ctx, id, viewer)
	return err
}

// DashboardStats 返回频道汇总数据。
func (s *VideoService) DashboardStats(ctx context.Context, owner uuid.UUID) (store.ChannelStats, error) {
	st, err := s.videos.ChannelStats(ctx, owner, string(KindVideo), string(KindChannel))
	if err != nil {
		return st, fmt.Errorf("channel stats: %w", err)
	}
	return st, nil
}

// DashboardVideos 返回所有者的全部视频，包括未发布的。
func (s *VideoService) DashboardVideos(ctx context.Context, owner uuid.UUID, page store.Page) ([]models.Video, int64, error) {
	videos, total, err := s.videos.List(ctx, store.VideoFilter{OwnerID: owner, Page: page})
	if err != nil {
		return nil, 0, fmt.Errorf("list channel videos: %w", err)
	}
	return videos, total, nil
}

func (s *VideoService) load(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	v, err := s.videos.Get(ctx, id)
	if err != nil {
		return nil, videoErr(err, "find video")
	}
	return v, nil
}

func (s *VideoService) owned(ctx context.Context, actor, id uuid.UUID) (*models.Video, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.OwnerID != actor {
		return nil, ErrNotOwner
	}
	return v, nil
}

func (s *VideoService) discard(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if err := s.media.Delete(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("discard uploaded media")
		}
	}
}

// notFoundAs 把存储层的 NotFound 转成具体实体的错误。
func notFoundAs(err error, target error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return target
	}
	return fmt.Errorf("%s: %w", op, err)
}
