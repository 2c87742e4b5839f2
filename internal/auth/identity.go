package auth

import "github.com/google/uuid"

// Identity 表示请求方身份：已认证用户或匿名访客。
type Identity struct {
	id            uuid.UUID
	authenticated bool
}

func Authenticated(id uuid.UUID) Identity { return Identity{id: id, authenticated: true} }

func Anonymous() Identity { return Identity{} }

// UserID 仅在已认证时返回 ok=true。
func (i Identity) UserID() (uuid.UUID, bool) { return i.id, i.authenticated }

func (i Identity) IsAnonymous() bool { return !i.authenticated }
