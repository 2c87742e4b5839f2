package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"videohub/internal/auth"
	"videohub/internal/metrics"
	"videohub/internal/models"
	"videohub/internal/store"
)

// HistoryStore 要求 InsertFirstView 在同一事务内写入历史并递增播放数，
// (user, video) 已存在时返回 store.ErrConflict 且不递增。
// 未发布视频只对所有者计数与返回播放数，其他访问者得到 store.ErrNotFound。
type HistoryStore interface {
	InsertFirstView(ctx context.Context, userID, videoID uuid.UUID, at time.Time) (int64, error)
	TouchView(ctx context.Context, userID, videoID uuid.UUID, at time.Time) error
	IncrementViews(ctx context.Context, videoID uuid.UUID) (int64, error)
	Views(ctx context.Context, videoID, viewer uuid.UUID) (int64, error)
	List(ctx context.Context, userID uuid.UUID, page store.Page) ([]models.WatchEntry, error)
}

// ViewService 记录播放并按用户去重。
type ViewService struct {
	history HistoryStore
	now     func() time.Time
}

func NewViewService(history HistoryStore) *ViewService {
	return &ViewService{history: history, now: time.Now}
}

// RecordView 返回更新后的播放数。匿名访问每次计数；已登录用户每个视频只计一次，
// 之后的访问只刷新观看时间。未发布视频对所有者以外的访问者表现为不存在。
func (s *ViewService) RecordView(ctx context.Context, viewer auth.Identity, videoID uuid.UUID) (int64, error) {
	if videoID == uuid.Nil {
		return 0, ErrInvalidID
	}
	userID, ok := viewer.UserID()
	if !ok {
		views, err := s.history.IncrementViews(ctx, videoID)
		if err != nil {
			return 0, videoErr(err, "increment views")
		}
		metrics.VideoViews.WithLabelValues("anonymous", "true").Inc()
		return views, nil
	}

	now := s.now()
	views, err := s.history.InsertFirstView(ctx, userID, videoID, now)
	if err == nil {
		metrics.VideoViews.WithLabelValues("user", "true").Inc()
		return views, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return 0, videoErr(err, "record first view")
	}

	views, err = s.history.Views(ctx, videoID, userID)
	if err != nil {
		return 0, videoErr(err, "load views")
	}
	if err := s.history.TouchView(ctx, userID, videoID, now); err != nil {
		return 0, fmt.Errorf("touch view: %w", err)
	}
	metrics.VideoViews.WithLabelValues("user", "false").Inc()
	return views, nil
}

// History 返回用户观看历史。
func (s *ViewService) History(ctx context.Context, userID uuid.UUID, page store.Page) ([]models.WatchEntry, error) {
	return s.history.List(ctx, userID, page)
}

func videoErr(err error, op string) error { return notFoundAs(err, ErrVideoNotFound, op) }
