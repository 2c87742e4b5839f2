package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"videohub/internal/auth"
	"videohub/internal/media"
	"videohub/internal/models"
	"videohub/internal/store"
)

// UserStore 是用户资料相关的存储。
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.User, error)
}

// Uploader 是媒体上传协作方。
type Uploader interface {
	Upload(ctx context.Context, prefix string, f media.File) (media.Result, error)
	Delete(ctx context.Context, key string) error
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// UserService 封装用户相关的业务逻辑。
type UserService struct {
	users   UserStore
	tokens  *TokenService
	toggles *ToggleService
	media   Uploader
}

func NewUserService(users UserStore, tokens *TokenService, toggles *ToggleService, uploader Uploader) *UserService {
	return &UserService{users: users, tokens: tokens, toggles: toggles, media: uploader}
}

// RegisterInput 是注册所需数据，头像与封面可选。
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *media.File
	CoverImage *media.File
}

// Register 注册新用户。文件先上传，写库失败时删除已上传的对象。
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	if in.FullName == "" || in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, validationError("all fields are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, validationError("email is invalid")
	}
	if len(in.Username) < 2 || len(in.Username) > 64 {
		return nil, validationError("invalid username")
	}
	if len(in.Password) < 4 || len(in.Password) > 72 {
		return nil, validationError("invalid password")
	}
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var uploaded []string
	user := models.User{Username: in.Username, Email: in.Email, FullName: in.FullName, PasswordHash: hash}
	if in.Avatar != nil {
		res, err := s.media.Upload(ctx, "avatars", *in.Avatar)
		if err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
		uploaded = append(uploaded, res.Key)
		user.Avatar = res.URL
	}
	if in.CoverImage != nil {
		res, err := s.media.Upload(ctx, "covers", *in.CoverImage)
		if err != nil {
			s.discard(ctx, uploaded)
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
		uploaded = append(uploaded, res.Key)
		user.CoverImage = res.URL
	}

	if err := s.users.Create(ctx, &user); err != nil {
		s.discard(ctx, uploaded)
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// LoginResult 登录成功后返回的数据。
type LoginResult struct {
	User   *models.User
	Tokens *TokenPair
}

// Login 校验用户名或邮箱与密码并签发 token 对。密码错误时不写任何数据。
func (s *UserService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, validationError("username or email and password are required")
	}
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Logout 清除当前 refresh token。
func (s *UserService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.Revoke(ctx, userID)
}

// ChangePassword 校验旧密码后替换哈希，当前 refresh token 随之失效。
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return validationError("old and new password are required")
	}
	if len(newPassword) < 4 || len(newPassword) > 72 {
		return validationError("invalid password")
	}
	user, err := s.Current(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrWrongOldPassword
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func (s *UserService) Current(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpdateAccount 更新姓名与邮箱。
func (s *UserService) UpdateAccount(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.User, error) {
	fullName, email = strings.TrimSpace(fullName), strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, validationError("all fields are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, validationError("email is invalid")
	}
	user, err := s.users.UpdateProfile(ctx, userID, map[string]interface{}{"full_name": fullName, "email": email})
	switch {
	case errors.Is(err, store.ErrConflict):
		return nil, ErrUserExists
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("update account: %w", err)
	}
	return user, nil
}

// UpdateAvatar 上传新头像并更新资料。
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, f *media.File) (*models.User, error) {
	return s.replaceImage(ctx, userID, f, "avatars", "avatar")
}

// UpdateCoverImage 上传新封面并更新资料。
func (s *UserService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, f *media.File) (*models.User, error) {
	return s.replaceImage(ctx, userID, f, "covers", "cover_image")
}

func (s *UserService) replaceImage(ctx context.Context, userID uuid.UUID, f *media.File, prefix, column string) (*models.User, error) {
	if f == nil {
		return nil, ErrMediaRequired
	}
	res, err := s.media.Upload(ctx, prefix, *f)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", column, err)
	}
	user, err := s.users.UpdateProfile(ctx, userID, map[string]interface{}{column: res.URL})
	if err != nil {
		s.discard(ctx, []string{res.Key})
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update %s: %w", column, err)
	}
	return user, nil
}

// ChannelProfile 是频道主页数据。
type ChannelProfile struct {
	ID                uuid.UUID `json:"id"`
	Username          string    `json:"username"`
	FullName          string    `json:"fullName"`
	Avatar            string    `json:"avatar"`
	CoverImage        string    `json:"coverImage"`
	SubscribersCount  int64     `json:"subscribersCount"`
	SubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed      bool      `json:"isSubscribed"`
}

// ChannelProfile 按用户名查询频道，viewer 为匿名时 IsSubscribed 恒为 false。
func (s *UserService) ChannelProfile(ctx context.Context, username string, viewer auth.Identity) (*ChannelProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationError("username is missing")
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("find channel: %w", err)
	}
	p := &ChannelProfile{ID: user.ID, Username: user.Username, FullName: user.FullName, Avatar: user.Avatar, CoverImage: user.CoverImage}
	if viewerID, ok := viewer.UserID(); ok {
		st, err := s.toggles.Status(ctx, viewerID, user.ID, KindChannel)
		if err != nil {
			return nil, err
		}
		p.SubscribersCount, p.IsSubscribed = st.Count, st.ActorHasToggled
	} else {
		n, err := s.toggles.Count(ctx, user.ID, KindChannel)
		if err != nil {
			return nil, err
		}
		p.SubscribersCount = n
	}
	n, err := s.toggles.CountByActor(ctx, user.ID, KindChannel)
	if err != nil {
		return nil, err
	}
	p.SubscribedToCount = n
	return p, nil
}

// SubscribedChannels 返回用户订阅的频道。
func (s *UserService) SubscribedChannels(ctx context.Context, userID uuid.UUID, page store.Page) ([]models.User, error) {
	ids, err := s.toggles.Targets(ctx, userID, KindChannel, page)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return s.users.FindByIDs(ctx, ids)
}

// ChannelExists 供订阅 handler 在切换前校验目标频道。
func (s *UserService) ChannelExists(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrChannelNotFound
		}
		return fmt.Errorf("find channel: %w", err)
	}
	return nil
}

func (s *UserService) discard(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.media.Delete(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("discard uploaded media")
		}
	}
}
