package service

import "videohub/internal/apperr"

// 业务层通用错误，handler 根据 apperr.Kind 映射到 HTTP 状态码。
var (
	ErrUserExists         = apperr.New(apperr.Conflict, "user with this username or email already exists")
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user does not exist")
	ErrInvalidCredentials = apperr.New(apperr.Auth, "invalid credentials")
	ErrWrongOldPassword   = apperr.New(apperr.Validation, "invalid old password")
	ErrIdentityNotFound   = apperr.New(apperr.NotFound, "identity not found")
	ErrInvalidID          = apperr.New(apperr.Validation, "invalid id")
	ErrInvalidTargetKind  = apperr.New(apperr.Validation, "invalid target kind")
	ErrSelfSubscribe      = apperr.New(apperr.Validation, "cannot subscribe to own channel")
	ErrChannelNotFound    = apperr.New(apperr.NotFound, "channel not found")
	ErrTargetNotFound     = apperr.New(apperr.NotFound, "target not found")
	ErrVideoNotFound      = apperr.New(apperr.NotFound, "video not found")
	ErrCommentNotFound    = apperr.New(apperr.NotFound, "comment not found")
	ErrTweetNotFound      = apperr.New(apperr.NotFound, "tweet not found")
	ErrPlaylistNotFound   = apperr.New(apperr.NotFound, "playlist not found")
	ErrNotOwner           = apperr.New(apperr.Forbidden, "only the owner can modify this resource")
	ErrMediaRequired      = apperr.New(apperr.Validation, "media file is required")
)

func validationError(msg string) error { return apperr.New(apperr.Validation, msg) }
