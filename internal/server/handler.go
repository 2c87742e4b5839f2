package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"videohub/internal/apperr"
	"videohub/internal/auth"
	"videohub/internal/config"
	"videohub/internal/media"
	"videohub/internal/service"
	"videohub/internal/store"
)

// Services 是 handler 依赖的业务服务集合。
type Services struct {
	Tokens    *service.TokenService
	Users     *service.UserService
	Videos    *service.VideoService
	Views     *service.ViewService
	Toggles   *service.ToggleService
	Comments  *service.CommentService
	Tweets    *service.TweetService
	Playlists *service.PlaylistService
}

// NewServices 基于 gorm 存储组装全部服务。
func NewServices(gdb *gorm.DB, tokens *auth.TokenManager, uploader service.Uploader) Services {
	users := store.NewUsers(gdb)
	tokenSvc := service.NewTokenService(tokens, users)
	toggles := service.NewToggleService(store.NewRelations(gdb))
	userSvc := service.NewUserService(users, tokenSvc, toggles, uploader)
	videoSvc := service.NewVideoService(store.NewVideos(gdb), toggles, uploader)
	return Services{
		Tokens:    tokenSvc,
		Users:     userSvc,
		Videos:    videoSvc,
		Views:     service.NewViewService(store.NewHistory(gdb)),
		Toggles:   toggles,
		Comments:  service.NewCommentService(store.NewComments(gdb), videoSvc),
		Tweets:    service.NewTweetService(store.NewTweets(gdb), userSvc),
		Playlists: service.NewPlaylistService(store.NewPlaylists(gdb), videoSvc, userSvc),
	}
}

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	svc          Services
	cookieSecure bool
	cookieDomain string
}

func NewHandler(svc Services, cfg config.Config) *Handler {
	return &Handler{svc: svc, cookieSecure: cfg.CookieSecure, cookieDomain: cfg.CookieDomain}
}

var errInvalidPayload = apperr.New(apperr.Validation, "invalid payload")

// writeError 按错误分类输出状态码，Internal 错误记录日志且不向客户端暴露细节。
func writeError(c *gin.Context, op string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(op)
	}
	c.AbortWithStatusJSON(kind.Status(), gin.H{"error": apperr.Message(err)})
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, service.ErrInvalidID
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

func pageQuery(c *gin.Context) store.Page {
	p, _, _ := service.PageOf(queryInt(c, "page"), queryInt(c, "limit"))
	return p
}

// formFile 读取可选的上传文件，字段不存在时返回 nil。调用方负责 close。
func formFile(c *gin.Context, field string) (*media.File, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, errInvalidPayload
	}
	return openUpload(fh)
}

func openUpload(fh *multipart.FileHeader) (*media.File, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func (h *Handler) setSessionCookies(c *gin.Context, pair *service.TokenPair) {
	now := time.Now()
	h.setCookie(c, auth.AccessCookie, pair.AccessToken, int(pair.AccessExpiresAt.Sub(now).Seconds()))
	h.setCookie(c, auth.RefreshCookie, pair.RefreshToken, int(pair.RefreshExpiresAt.Sub(now).Seconds()))
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	h.setCookie(c, auth.AccessCookie, "", -1)
	h.setCookie(c, auth.RefreshCookie, "", -1)
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Healthz 存活检查。
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
