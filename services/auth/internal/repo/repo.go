package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/registry_portal/pkg/db"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("repo: not found")
	ErrUserAlreadyExist = errors.New("repo: user already exist")
	ErrAlreadyConsumed  = errors.New("repo: refresh token already consumed")
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(&models.User{}, &models.RefreshToken{})
}

func (r *GormRepo) Ping(ctx context.Context) error {
	return db.Ping(ctx, r.DB)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
