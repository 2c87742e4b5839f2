package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"videohub/internal/auth"
	"videohub/internal/models"
	"videohub/internal/service"
)

// likeTarget 解析点赞路由中的 kind 与目标，并确认目标存在。频道不能被点赞。
func (h *Handler) likeTarget(c *gin.Context) (service.TargetKind, uuid.UUID, error) {
	kind, err := service.ParseTargetKind(c.Param("kind"))
	if err != nil || kind == service.KindChannel {
		return "", uuid.Nil, service.ErrInvalidTargetKind
	}
	id, err := uuidParam(c, "targetId")
	if err != nil {
		return "", uuid.Nil, err
	}
	var exists func(context.Context, uuid.UUID) error
	switch kind {
	case service.KindVideo:
		exists = func(ctx context.Context, id uuid.UUID) error {
			return h.svc.Videos.Exists(ctx, id, auth.GetIdentity(c))
		}
	case service.KindComment:
		exists = h.svc.Comments.Exists
	case service.KindTweet:
		exists = h.svc.Tweets.Exists
	}
	if err := exists(c.Request.Context(), id); err != nil {
		return "", uuid.Nil, err
	}
	return kind, id, nil
}

func (h *Handler) ToggleLike(c *gin.Context) {
	kind, target, err := h.likeTarget(c)
	if err != nil {
		writeError(c, "toggle like", err)
		return
	}
	state, err := h.svc.Toggles.Toggle(c.Request.Context(), auth.GetUserID(c), target, kind)
	if err != nil {
		writeError(c, "toggle like", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *Handler) LikeStatus(c *gin.Context) {
	kind, target, err := h.likeTarget(c)
	if err != nil {
		writeError(c, "like status", err)
		return
	}
	st, err := h.svc.Toggles.Status(c.Request.Context(), auth.GetUserID(c), target, kind)
	if err != nil {
		writeError(c, "like status", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) LikedVideos(c *gin.Context) {
	videos, err := h.svc.Videos.LikedVideos(c.Request.Context(), auth.GetUserID(c), pageQuery(c))
	if err != nil {
		writeError(c, "liked videos", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (h *Handler) channelParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuidParam(c, "channelId")
	if err != nil {
		return uuid.Nil, err
	}
	if err := h.svc.Users.ChannelExists(c.Request.Context(), id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ToggleSubscription 订阅或取消订阅频道，不能订阅自己。
func (h *Handler) ToggleSubscription(c *gin.Context) {
	channel, err := h.channelParam(c)
	if err != nil {
		writeError(c, "toggle subscription", err)
		return
	}
	actor := auth.GetUserID(c)
	if actor == channel {
		writeError(c, "toggle subscription", service.ErrSelfSubscribe)
		return
	}
	state, err := h.svc.Toggles.Toggle(c.Request.Context(), actor, channel, service.KindChannel)
	if err != nil {
		writeError(c, "toggle subscription", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *Handler) SubscriptionStatus(c *gin.Context) {
	channel, err := h.channelParam(c)
	if err != nil {
		writeError(c, "subscription status", err)
		return
	}
	st, err := h.svc.Toggles.Status(c.Request.Context(), auth.GetUserID(c), channel, service.KindChannel)
	if err != nil {
		writeError(c, "subscription status", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) SubscriberCount(c *gin.Context) {
	channel, err := h.channelParam(c)
	if err != nil {
		writeError(c, "subscriber count", err)
		return
	}
	n, err := h.svc.Toggles.Count(c.Request.Context(), channel, service.KindChannel)
	if err != nil {
		writeError(c, "subscriber count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) SubscribedChannels(c *gin.Context) {
	channels, err := h.svc.Users.SubscribedChannels(c.Request.Context(), auth.GetUserID(c), pageQuery(c))
	if err != nil {
		writeError(c, "subscribed channels", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

type contentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) ListComments(c *gin.Context) {
	videoID, err := uuidParam(c, "videoId")
	if err != nil {
		writeError(c, "list comments", err)
		return
	}
	comments, meta, err := h.svc.Comments.List(c.Request.Context(), videoID, auth.GetIdentity(c), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		writeError(c, "list comments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "meta": meta})
}

func (h *Handler) AddComment(c *gin.Context) {
	videoID, err := uuidParam(c, "videoId")
	if err != nil {
		writeError(c, "add comment", err)
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "add comment", errInvalidPayload)
		return
	}
	comment, err := h.svc.Comments.Add(c.Request.Context(), auth.GetUserID(c), videoID, req.Content)
	if err != nil {
		writeError(c, "add comment", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *Handler) UpdateComment(c *gin.Context) {
	id, err := uuidParam(c, "commentId")
	if err != nil {
		writeError(c, "update comment", err)
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "update comment", errInvalidPayload)
		return
	}
	comment, err := h.svc.Comments.Update(c.Request.Context(), auth.GetUserID(c), id, req.Content)
	if err != nil {
		writeError(c, "update comment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

func (h *Handler) DeleteComment(c *gin.Context) {
	id, err := uuidParam(c, "commentId")
	if err != nil {
		writeError(c, "delete comment", err)
		return
	}
	if err := h.svc.Comments.Delete(c.Request.Context(), auth.GetUserID(c), id); err != nil {
		writeError(c, "delete comment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

func (h *Handler) CreateTweet(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "create tweet", errInvalidPayload)
		return
	}
	tweet, err := h.svc.Tweets.Create(c.Request.Context(), auth.GetUserID(c), req.Content)
	if err != nil {
		writeError(c, "create tweet", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tweet": tweet})
}

func (h *Handler) UserTweets(c *gin.Context) {
	userID, err := uuidParam(c, "userId")
	if err != nil {
		writeError(c, "user tweets", err)
		return
	}
	tweets, err := h.svc.Tweets.ListByUser(c.Request.Context(), userID, pageQuery(c))
	if err != nil {
		writeError(c, "user tweets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tweets": tweets})
}

func (h *Handler) UpdateTweet(c *gin.Context) {
	id, err := uuidParam(c, "tweetId")
	if err != nil {
		writeError(c, "update tweet", err)
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "update tweet", errInvalidPayload)
		return
	}
	tweet, err := h.svc.Tweets.Update(c.Request.Context(), auth.GetUserID(c), id, req.Content)
	if err != nil {
		writeError(c, "update tweet", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tweet": tweet})
}

func (h *Handler) DeleteTweet(c *gin.Context) {
	id, err := uuidParam(c, "tweetId")
	if err != nil {
		writeError(c, "delete tweet", err)
		return
	}
	if err := h.svc.Tweets.Delete(c.Request.Context(), auth.GetUserID(c), id); err != nil {
		writeError(c, "delete tweet", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tweet deleted"})
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) CreatePlaylist(c *gin.Context) {
	var req playlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "create playlist", errInvalidPayload)
		return
	}
	p, err := h.svc.Playlists.Create(c.Request.Context(), auth.GetUserID(c), req.Name, req.Description)
	if err != nil {
		writeError(c, "create playlist", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playlist": p})
}

func (h *Handler) GetPlaylist(c *gin.Context) {
	id, err := uuidParam(c, "playlistId")
	if err != nil {
		writeError(c, "get playlist", err)
		return
	}
	p, err := h.svc.Playlists.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get playlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": p})
}

func (h *Handler) UserPlaylists(c *gin.Context) {
	userID, err := uuidParam(c, "userId")
	if err != nil {
		writeError(c, "user playlists", err)
		return
	}
	ps, err := h.svc.Playlists.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "user playlists", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": ps})
}

func (h *Handler) UpdatePlaylist(c *gin.Context) {
	id, err := uuidParam(c, "playlistId")
	if err != nil {
		writeError(c, "update playlist", err)
		return
	}
	var req playlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "update playlist", errInvalidPayload)
		return
	}
	p, err := h.svc.Playlists.Update(c.Request.Context(), auth.GetUserID(c), id, req.Name, req.Description)
	if err != nil {
		writeError(c, "update playlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": p})
}

func (h *Handler) DeletePlaylist(c *gin.Context) {
	id, err := uuidParam(c, "playlistId")
	if err != nil {
		writeError(c, "delete playlist", err)
		return
	}
	if err := h.svc.Playlists.Delete(c.Request.Context(), auth.GetUserID(c), id); err != nil {
		writeError(c, "delete playlist", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "playlist deleted"})
}

func (h *Handler) AddPlaylistVideo(c *gin.Context) {
	h.playlistVideo(c, "add playlist video", h.svc.Playlists.AddVideo)
}

func (h *Handler) RemovePlaylistVideo(c *gin.Context) {
	h.playlistVideo(c, "remove playlist video", h.svc.Playlists.RemoveVideo)
}

type playlistVideoOp func(ctx context.Context, actor, playlistID, videoID uuid.UUID) (*models.Playlist, error)

func (h *Handler) playlistVideo(c *gin.Context, op string, apply playlistVideoOp) {
	playlistID, err := uuidParam(c, "playlistId")
	if err != nil {
		writeError(c, op, err)
		return
	}
	videoID, err := uuidParam(c, "videoId")
	if err != nil {
		writeError(c, op, err)
		return
	}
	p, err := apply(c.Request.Context(), auth.GetUserID(c), playlistID, videoID)
	if err != nil {
		writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": p})
}
