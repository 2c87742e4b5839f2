// Package store 是基于 gorm 的存储实现，唯一约束冲突统一转换为 ErrConflict。
package store

import (
	"errors"

	"gorm.io/gorm"

	"videohub/internal/apperr"
)

var (
	ErrNotFound = apperr.New(apperr.NotFound, "record not found")
	ErrConflict = apperr.New(apperr.Conflict, "record already exists")
)

// Page 描述分页参数。
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 10
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrNotFound
	default:
		return err
	}
}
