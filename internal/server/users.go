package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"videohub/internal/auth"
	"videohub/internal/media"
	"videohub/internal/models"
	"videohub/internal/service"
)

// Register 处理 multipart 注册请求，头像与封面可选。
func (h *Handler) Register(c *gin.Context) {
	avatar, closeAvatar, err := formFile(c, "avatar")
	if err != nil {
		writeError(c, "register", err)
		return
	}
	defer closeAvatar()
	cover, closeCover, err := formFile(c, "coverImage")
	if err != nil {
		writeError(c, "register", err)
		return
	}
	defer closeCover()

	user, err := h.svc.Users.Register(c.Request.Context(), service.RegisterInput{
		FullName:   c.PostForm("fullName"),
		Email:      c.PostForm("email"),
		Username:   c.PostForm("username"),
		Password:   c.PostForm("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		writeError(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login 接受用户名或邮箱，成功后下发两个 httpOnly cookie 并在响应体中返回 token。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "login", errInvalidPayload)
		return
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	res, err := h.svc.Users.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		writeError(c, "login", err)
		return
	}
	h.setSessionCookies(c, res.Tokens)
	c.JSON(http.StatusCreated, gin.H{
		"user":         res.User,
		"accessToken":  res.Tokens.AccessToken,
		"refreshToken": res.Tokens.RefreshToken,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Users.Logout(c.Request.Context(), auth.GetUserID(c)); err != nil {
		writeError(c, "logout", err)
		return
	}
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// RefreshToken 从 cookie 或请求体读取 refresh token 并轮换。
func (h *Handler) RefreshToken(c *gin.Context) {
	presented, _ := c.Cookie(auth.RefreshCookie)
	if presented == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = c.ShouldBindJSON(&req)
		presented = req.RefreshToken
	}
	pair, err := h.svc.Tokens.Rotate(c.Request.Context(), presented)
	if err != nil {
		if errors.Is(err, auth.ErrTokenReused) {
			h.clearSessionCookies(c)
		}
		log.Warn().Err(err).Msg("refresh token")
		writeError(c, "refresh token", err)
		return
	}
	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken, "refreshToken": pair.RefreshToken})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "change password", errInvalidPayload)
		return
	}
	if err := h.svc.Users.ChangePassword(c.Request.Context(), auth.GetUserID(c), req.OldPassword, req.NewPassword); err != nil {
		writeError(c, "change password", err)
		return
	}
	h.setCookie(c, auth.RefreshCookie, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (h *Handler) CurrentUser(c *gin.Context) {
	user, err := h.svc.Users.Current(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		writeError(c, "current user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "update account", errInvalidPayload)
		return
	}
	user, err := h.svc.Users.UpdateAccount(c.Request.Context(), auth.GetUserID(c), req.FullName, req.Email)
	if err != nil {
		writeError(c, "update account", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, "avatar", h.svc.Users.UpdateAvatar)
}

func (h *Handler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, "coverImage", h.svc.Users.UpdateCoverImage)
}

type imageUpdater func(ctx context.Context, userID uuid.UUID, f *media.File) (*models.User, error)

func (h *Handler) updateImage(c *gin.Context, field string, update imageUpdater) {
	f, closeFile, err := formFile(c, field)
	if err != nil {
		writeError(c, "update "+field, err)
		return
	}
	defer closeFile()
	user, err := update(c.Request.Context(), auth.GetUserID(c), f)
	if err != nil {
		writeError(c, "update "+field, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ChannelProfile 频道主页，登录用户额外得到 isSubscribed。
func (h *Handler) ChannelProfile(c *gin.Context) {
	p, err := h.svc.Users.ChannelProfile(c.Request.Context(), c.Param("username"), auth.GetIdentity(c))
	if err != nil {
		writeError(c, "channel profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": p})
}

func (h *Handler) WatchHistory(c *gin.Context) {
	entries, err := h.svc.Views.History(c.Request.Context(), auth.GetUserID(c), pageQuery(c))
	if err != nil {
		writeError(c, "watch history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
