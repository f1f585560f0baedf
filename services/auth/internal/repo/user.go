package repo

import (
	"context"

	"github.com/Skotchmaster/registry_portal/services/auth/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpdateRole sets role and overrides and revokes every live family of the
// user in the same transaction. It returns the number of revoked tokens.
func (r *GormRepo) UpdateRole(ctx context.Context, id uuid.UUID, role string, overrides []string, reason string) (int64, error) {
	var revoked int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"role":                 role,
				"permission_overrides": pq.StringArray(overrides),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var err error
		revoked, err = revokeAll(tx, id, reason)
		return err
	})
	return revoked, err
}

// Deactivate clears is_active and revokes every live family of the user in
// the same transaction.
func (r *GormRepo) Deactivate(ctx context.Context, id uuid.UUID, reason string) (int64, error) {
	var revoked int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", id).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var err error
		revoked, err = revokeAll(tx, id, reason)
		return err
	})
	return revoked, err
}
