package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base 提供 uuid 主键与时间戳，主键在写入前由应用生成。
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// RefreshSession 是用户当前唯一有效的 refresh token 记录，只保存哈希。
// Version 每次轮换递增，轮换通过以旧哈希为条件的更新完成。
type RefreshSession struct {
	TokenHash string `gorm:"size:64;index"`
	Version   int64  `gorm:"not null;default:0"`
	ExpiresAt *time.Time
}

type User struct {
	Base
	Username     string         `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName     string         `gorm:"size:128;not null" json:"fullName"`
	Avatar       string         `json:"avatar"`
	CoverImage   string         `json:"coverImage"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Refresh      RefreshSession `gorm:"embedded;embeddedPrefix:refresh_" json:"-"`
}

type Video struct {
	Base
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`
	VideoFile   string    `gorm:"not null" json:"videoFile"`
	Thumbnail   string    `gorm:"not null" json:"thumbnail"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `gorm:"not null;default:0" json:"views"`
	IsPublished bool      `gorm:"not null;default:true" json:"isPublished"`
	Owner       *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
}

type Comment struct {
	Base
	VideoID uuid.UUID `gorm:"type:uuid;index;not null" json:"videoId"`
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`
	Content string    `gorm:"type:text;not null" json:"content"`
	Owner   *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Video   *Video    `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
}

type Tweet struct {
	Base
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`
	Content string    `gorm:"type:text;not null" json:"content"`
}

type Playlist struct {
	Base
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Videos      []Video   `gorm:"many2many:playlist_videos;constraint:OnDelete:CASCADE" json:"videos,omitempty"`
}

// Relation 是点赞/订阅等二元关系记录，记录存在即关系成立。
// (actor_id, target_id, kind) 唯一，并发重复插入由数据库拒绝。
type Relation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_relation_key,priority:1" json:"actorId"`
	TargetID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_relation_key,priority:2;index:idx_relation_target,priority:1" json:"targetId"`
	Kind      string    `gorm:"size:16;not null;uniqueIndex:idx_relation_key,priority:3;index:idx_relation_target,priority:2" json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *Relation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// WatchEntry 是观看历史，每个 (user, video) 仅一条，重复观看只刷新 WatchedAt。
type WatchEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_watch_user_video,priority:1" json:"userId"`
	VideoID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_watch_user_video,priority:2" json:"videoId"`
	WatchedAt time.Time `gorm:"not null;index" json:"watchedAt"`
	Video     *Video    `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"video,omitempty"`
}

func (w *WatchEntry) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
