package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"videohub/internal/auth"
	"videohub/internal/models"
	"videohub/internal/store"
)

type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	Get(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByVideo(ctx context.Context, videoID uuid.UUID, page store.Page) ([]models.Comment, int64, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID, likeKind string) error
}

type TweetStore interface {
	Create(ctx context.Context, t *models.Tweet) error
	Get(ctx context.Context, id uuid.UUID) (*models.Tweet, error)
	ListByOwner(ctx context.Context, owner uuid.UUID, page store.Page) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*models.Tweet, error)
	Delete(ctx context.Context, id uuid.UUID, likeKind string) error
}

type PlaylistStore interface {
	Create(ctx context.Context, p *models.Playlist) error
	Get(ctx context.Context, id uuid.UUID) (*models.Playlist, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.Playlist, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Playlist, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddVideo(ctx context.Context, playlistID, videoID uuid.UUID) error
	RemoveVideo(ctx context.Context, playlistID, videoID uuid.UUID) error
}

func requireContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", validationError("content is required")
	}
	return content, nil
}

// CommentService 管理视频评论。
type CommentService struct {
	comments CommentStore
	videos   *VideoService
}

func NewCommentService(comments CommentStore, videos *VideoService) *CommentService {
	return &CommentService{comments: comments, videos: videos}
}

// List 只列出 viewer 可见视频下的评论。
func (s *CommentService) List(ctx context.Context, videoID uuid.UUID, viewer auth.Identity, page, limit int) ([]models.Comment, PageMeta, error) {
	if err := s.videos.Exists(ctx, videoID, viewer); err != nil {
		return nil, PageMeta{}, err
	}
	p, page, limit := PageOf(page, limit)
	out, total, err := s.comments.ListByVideo(ctx, videoID, p)
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("list comments: %w", err)
	}
	return out, newPageMeta(total, page, limit), nil
}

func (s *CommentService) Add(ctx context.Context, owner, videoID uuid.UUID, content string) (*models.Comment, error) {
	content, err := requireContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.videos.Exists(ctx, videoID, auth.Authenticated(owner)); err != nil {
		return nil, err
	}
	c := models.Comment{VideoID: videoID, OwnerID: owner, Content: content}
	if err := s.comments.Create(ctx, &c); err != nil {
		return nil, notFoundAs(err, ErrVideoNotFound, "create comment")
	}
	return &c, nil
}

func (s *CommentService) Update(ctx context.Context, actor, id uuid.UUID, content string) (*models.Comment, error) {
	content, err := requireContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	c, err := s.comments.UpdateContent(ctx, id, content)
	if err != nil {
		return nil, notFoundAs(err, ErrCommentNotFound, "update comment")
	}
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, id, string(KindComment)); err != nil {
		return notFoundAs(err, ErrCommentNotFound, "delete comment")
	}
	return nil
}

// Exists 供点赞 handler 校验目标。
func (s *CommentService) Exists(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidID
	}
	if _, err := s.comments.Get(ctx, id); err != nil {
		return notFoundAs(err, ErrCommentNotFound, "find comment")
	}
	return nil
}

func (s *CommentService) owned(ctx context.Context, actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidID
	}
	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return notFoundAs(err, ErrCommentNotFound, "find comment")
	}
	if c.OwnerID != actor {
		return ErrNotOwner
	}
	return nil
}

// TweetService 管理频道动态。
type TweetService struct {
	tweets TweetStore
	users  *UserService
}

func NewTweetService(tweets TweetStore, users *UserService) *TweetService {
	return &TweetService{tweets: tweets, users: users}
}

func (s *TweetService) Create(ctx context.Context, owner uuid.UUID, content string) (*models.Tweet, error) {
	content, err := requireContent(content)
	if err != nil {
		return nil, err
	}
	t := models.Tweet{OwnerID: owner, Content: content}
	if err := s.tweets.Create(ctx, &t); err != nil {
		return nil, fmt.Errorf("create tweet: %w", err)
	}
	return &t, nil
}

func (s *TweetService) ListByUser(ctx context.Context, userID uuid.UUID, page store.Page) ([]models.Tweet, error) {
	if err := s.users.ChannelExists(ctx, userID); err != nil {
		return nil, err
	}
	out, err := s.tweets.ListByOwner(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	return out, nil
}

func (s *TweetService) Update(ctx context.Context, actor, id uuid.UUID, content string) (*models.Tweet, error) {
	content, err := requireContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	t, err := s.tweets.UpdateContent(ctx, id, content)
	if err != nil {
		return nil, notFoundAs(err, ErrTweetNotFound, "update tweet")
	}
	return t, nil
}

func (s *TweetService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.tweets.Delete(ctx, id, string(KindTweet)); err != nil {
		return notFoundAs(err, ErrTweetNotFound, "delete tweet")
	}
	return nil
}

func (s *TweetService) Exists(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidID
	}
	if _, err := s.tweets.Get(ctx, id); err != nil {
		return notFoundAs(err, ErrTweetNotFound, "find tweet")
	}
	return nil
}

func (s *TweetService) owned(ctx context.Context, actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidID
	}
	t, err := s.tweets.Get(ctx, id)
	if err != nil {
		return notFoundAs(err, ErrTweetNotFound, "find tweet")
	}
	if t.OwnerID != actor {
		return ErrNotOwner
	}
	return nil
}

// PlaylistService 管理播放列表，所有修改只允许所有者执行。
type PlaylistService struct {
	playlists PlaylistStore
	videos    *VideoService
	users     *UserService
}

func NewPlaylistService(playlists PlaylistStore, videos *VideoService, users *UserService) *PlaylistService {
	return &PlaylistService{playlists: playlists, videos: videos, users: users}
}

func (s *PlaylistService) Create(ctx context.Context, owner uuid.UUID, name, description string) (*models.Playlist, error) {
	name, description = strings.TrimSpace(name), strings.TrimSpace(description)
	if name == "" {
		return nil, validationError("name is required")
	}
	p := models.Playlist{OwnerID: owner, Name: name, Description: description}
	if err := s.playlists.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return &p, nil
}

func (s *PlaylistService) Get(ctx context.Context, id uuid.UUID) (*models.Playlist, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	p, err := s.playlists.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrPlaylistNotFound, "find playlist")
	}
	return p, nil
}

func (s *PlaylistService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Playlist, error) {
	if err := s.users.ChannelExists(ctx, userID); err != nil {
		return nil, err
	}
	out, err := s.playlists.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return out, nil
}

func (s *PlaylistService) Update(ctx context.Context, actor, id uuid.UUID, name, description string) (*models.Playlist, error) {
	fields := map[string]interface{}{}
	if n := strings.TrimSpace(name); n != "" {
		fields["name"] = n
	}
	if d := strings.TrimSpace(description); d != "" {
		fields["description"] = d
	}
	if len(fields) == 0 {
		return nil, validationError("nothing to update")
	}
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	p, err := s.playlists.Update(ctx, id, fields)
	if err != nil {
		return nil, notFoundAs(err, ErrPlaylistNotFound, "update playlist")
	}
	return p, nil
}

func (s *PlaylistService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.playlists.Delete(ctx, id); err != nil {
		return notFoundAs(err, ErrPlaylistNotFound, "delete playlist")
	}
	return nil
}

// AddVideo 幂等。
func (s *PlaylistService) AddVideo(ctx context.Context, actor, playlistID, videoID uuid.UUID) (*models.Playlist, error) {
	if _, err := s.owned(ctx, actor, playlistID); err != nil {
		return nil, err
	}
	if err := s.videos.Exists(ctx, videoID, auth.Authenticated(actor)); err != nil {
		return nil, err
	}
	if err := s.playlists.AddVideo(ctx, playlistID, videoID); err != nil {
		return nil, notFoundAs(err, ErrVideoNotFound, "add video to playlist")
	}
	return s.Get(ctx, playlistID)
}

func (s *PlaylistService) RemoveVideo(ctx context.Context, actor, playlistID, videoID uuid.UUID) (*models.Playlist, error) {
	if _, err := s.owned(ctx, actor, playlistID); err != nil {
		return nil, err
	}
	if videoID == uuid.Nil {
		return nil, ErrInvalidID
	}
	if err := s.playlists.RemoveVideo(ctx, playlistID, videoID); err != nil {
		return nil, fmt.Errorf("remove video from playlist: %w", err)
	}
	return s.Get(ctx, playlistID)
}

func (s *PlaylistService) owned(ctx context.Context, actor, id uuid.UUID) (*models.Playlist, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != actor {
		return nil, ErrNotOwner
	}
	return p, nil
}
