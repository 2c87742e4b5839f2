package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"videohub/internal/metrics"
	"videohub/internal/models"
	"videohub/internal/store"
)

// TargetKind 是关系目标的封闭枚举。
type TargetKind string

const (
	KindVideo   TargetKind = "video"
	KindComment TargetKind = "comment"
	KindTweet   TargetKind = "tweet"
	KindChannel TargetKind = "channel"
)

// ParseTargetKind 同时接受完整名称和路由中的缩写（v/c/t）。
func ParseTargetKind(s string) (TargetKind, error) {
	switch s {
	case "video", "v":
		return KindVideo, nil
	case "comment", "c":
		return KindComment, nil
	case "tweet", "t":
		return KindTweet, nil
	case "channel":
		return KindChannel, nil
	}
	return "", ErrInvalidTargetKind
}

func (k TargetKind) Valid() bool {
	_, err := ParseTargetKind(string(k))
	return err == nil
}

type ToggleState string

const (
	StateCreated ToggleState = "created"
	StateRemoved ToggleState = "removed"
)

// ToggleStatus 是目标的关系总数以及当前 actor 是否已建立关系。
type ToggleStatus struct {
	Count           int64 `json:"count"`
	ActorHasToggled bool  `json:"actorHasToggled"`
}

// RelationStore 要求 Insert 在 (actor, target, kind) 重复时返回 store.ErrConflict，
// Delete 对不存在的记录返回 nil。
type RelationStore interface {
	Find(ctx context.Context, actor, target uuid.UUID, kind string) (*models.Relation, error)
	Insert(ctx context.Context, actor, target uuid.UUID, kind string) (*models.Relation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, target uuid.UUID, kind string) (int64, error)
	CountByActor(ctx context.Context, actor uuid.UUID, kind string) (int64, error)
	Exists(ctx context.Context, actor, target uuid.UUID, kind string) (bool, error)
	TargetsOf(ctx context.Context, actor uuid.UUID, kind string, page store.Page) ([]uuid.UUID, error)
}

// ToggleService 是点赞与订阅共用的关系开关引擎，只操作关系记录，不校验目标是否存在。
type ToggleService struct {
	relations RelationStore
}

func NewToggleService(relations RelationStore) *ToggleService {
	return &ToggleService{relations: relations}
}

func validateKey(actor, target uuid.UUID, kind TargetKind) error {
	if actor == uuid.Nil || target == uuid.Nil {
		return ErrInvalidID
	}
	if !kind.Valid() {
		return ErrInvalidTargetKind
	}
	return nil
}

// Toggle 存在则删除并返回 removed，不存在则创建并返回 created。
// 并发创建时唯一索引冲突视为已由其他请求创建。
func (s *ToggleService) Toggle(ctx context.Context, actor, target uuid.UUID, kind TargetKind) (ToggleState, error) {
	if err := validateKey(actor, target, kind); err != nil {
		return "", err
	}
	existing, err := s.relations.Find(ctx, actor, target, string(kind))
	switch {
	case err == nil:
		if err := s.relations.Delete(ctx, existing.ID); err != nil {
			return "", fmt.Errorf("delete relation: %w", err)
		}
		metrics.ToggleOperations.WithLabelValues(string(kind), string(StateRemoved)).Inc()
		return StateRemoved, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("find relation: %w", err)
	}

	if _, err := s.relations.Insert(ctx, actor, target, string(kind)); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return "", fmt.Errorf("insert relation: %w", err)
		}
		metrics.ToggleConflicts.WithLabelValues(string(kind)).Inc()
	}
	metrics.ToggleOperations.WithLabelValues(string(kind), string(StateCreated)).Inc()
	return StateCreated, nil
}

func (s *ToggleService) Status(ctx context.Context, actor, target uuid.UUID, kind TargetKind) (ToggleStatus, error) {
	if err := validateKey(actor, target, kind); err != nil {
		return ToggleStatus{}, err
	}
	count, err := s.relations.Count(ctx, target, string(kind))
	if err != nil {
		return ToggleStatus{}, fmt.Errorf("count relations: %w", err)
	}
	has, err := s.relations.Exists(ctx, actor, target, string(kind))
	if err != nil {
		return ToggleStatus{}, fmt.Errorf("check relation: %w", err)
	}
	return ToggleStatus{Count: count, ActorHasToggled: has}, nil
}

// Count 返回目标的关系总数，不需要 actor。
func (s *ToggleService) Count(ctx context.Context, target uuid.UUID, kind TargetKind) (int64, error) {
	if target == uuid.Nil {
		return 0, ErrInvalidID
	}
	return s.relations.Count(ctx, target, string(kind))
}

func (s *ToggleService) CountByActor(ctx context.Context, actor uuid.UUID, kind TargetKind) (int64, error) {
	return s.relations.CountByActor(ctx, actor, string(kind))
}

func (s *ToggleService) Targets(ctx context.Context, actor uuid.UUID, kind TargetKind, page store.Page) ([]uuid.UUID, error) {
	return s.relations.TargetsOf(ctx, actor, string(kind), page)
}
