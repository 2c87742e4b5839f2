package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"videohub/internal/auth"
	"videohub/internal/service"
)

// ListVideos 支持 page、limit、query、sortBy、sortType、userId 查询参数。
func (h *Handler) ListVideos(c *gin.Context) {
	q := service.ListQuery{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Query:    c.Query("query"),
		SortBy:   c.Query("sortBy"),
		SortType: c.Query("sortType"),
	}
	if raw := c.Query("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(c, "list videos", service.ErrInvalidID)
			return
		}
		q.OwnerID = id
	}
	videos, meta, err := h.svc.Videos.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, "list videos", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos, "meta": meta})
}

func (h *Handler) VideoSuggestions(c *gin.Context) {
	titles, err := h.svc.Videos.Suggestions(c.Request.Context(), c.Query("query"))
	if err != nil {
		writeError(c, "video suggestions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": titles})
}

// PublishVideo 需要 videoFile 与 thumbnail 两个文件字段。
func (h *Handler) PublishVideo(c *gin.Context) {
	videoFile, closeVideo, err := formFile(c, "videoFile")
	if err != nil {
		writeError(c, "publish video", err)
		return
	}
	defer closeVideo()
	thumb, closeThumb, err := formFile(c, "thumbnail")
	if err != nil {
		writeError(c, "publish video", err)
		return
	}
	defer closeThumb()

	var duration float64
	if raw := c.PostForm("duration"); raw != "" {
		if duration, err = strconv.ParseFloat(raw, 64); err != nil {
			writeError(c, "publish video", errInvalidPayload)
			return
		}
	}
	v, err := h.svc.Videos.Publish(c.Request.Context(), auth.GetUserID(c), service.PublishInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Duration:    duration,
		VideoFile:   videoFile,
		Thumbnail:   thumb,
	})
	if err != nil {
		writeError(c, "publish video", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"video": v})
}

func (h *Handler) GetVideo(c *gin.Context) {
	id, err := uuidParam(c, "videoId")
	if err != nil {
		writeError(c, "get video", err)
		return
	}
	v, err := h.svc.Videos.Get(c.Request.Context(), id, auth.GetIdentity(c))
	if err != nil {
		writeError(c, "get video", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video": v})
}

func (h *Handler) UpdateVideo(c *gin.Context) {
	id, err := uuidParam(c, "videoId")
	if err != nil {
		writeError(c, "update video", err)
		return
	}
	thumb, closeThumb, err := formFile(c, "thumbnail")
	if err != nil {
		writeError(c, "update video", err)
		return
	}
	defer closeThumb()
	v, err := h.svc.Videos.Update(c.Request.Context(), auth.GetUserID(c), id, service.UpdateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Thumbnail:   thumb,
	})
	if err != nil {
		writeError(c, "update video", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video": v})
}

func (h *Handler) DeleteVideo(c *gin.Context) {
	id, err := uuidParam(c, "videoId")
	if err != nil {
		writeError(c, "delete video", err)
		return
	}
	if err := h.svc.Videos.Delete(c.Request.Context(), auth.GetUserID(c), id); err != nil {
		writeError(c, "delete video", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "video deleted"})
}

func (h *Handler) TogglePublish(c *gin.Context) {
	id, err := uuidParam(c, "videoId")
	if err != nil {
		writeError(c, "toggle publish", err)
		return
	}
	v, err := h.svc.Videos.TogglePublish(c.Request.Context(), auth.GetUserID(c), id)
	if err != nil {
		writeError(c, "toggle publish", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isPublished": v.IsPublished, "video": v})
}

// RecordView 对匿名访问每次计数，对登录用户按视频去重。
func (h *Handler) RecordView(c *gin.Context) {
	id, err := uuidParam(c, "videoId")
	if err != nil {
		writeError(c, "record view", err)
		return
	}
	views, err := h.svc.Views.RecordView(c.Request.Context(), auth.GetIdentity(c), id)
	if err != nil {
		writeError(c, "record view", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": views})
}

func (h *Handler) DashboardStats(c *gin.Context) {
	st, err := h.svc.Videos.DashboardStats(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		writeError(c, "dashboard stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": st})
}

func (h *Handler) DashboardVideos(c *gin.Context) {
	videos, total, err := h.svc.Videos.DashboardVideos(c.Request.Context(), auth.GetUserID(c), pageQuery(c))
	if err != nil {
		writeError(c, "dashboard videos", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos, "total": total})
}
