package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/registry_portal/services/auth/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateRefresh(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) FindRefreshByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *GormRepo) FindRefreshByID(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// RotateRefresh consumes oldID and stores next in one transaction. The
// consume is a conditional update, so of two concurrent callers exactly one
// sees a row change; the other gets ErrAlreadyConsumed and nothing is written.
func (r *GormRepo) RotateRefresh(ctx context.Context, oldID uuid.UUID, now time.Time, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND consumed_at IS NULL AND revoked = ?", oldID, false).
			Update("consumed_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyConsumed
		}
		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeFamily(ctx context.Context, familyID uuid.UUID, reason string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("family_id = ? AND revoked = ?", familyID, false).
		Updates(map[string]any{"revoked": true, "revoked_reason": reason})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID, reason string) (int64, error) {
	return revokeAll(r.DB.WithContext(ctx), userID, reason)
}

func revokeAll(tx *gorm.DB, userID uuid.UUID, reason string) (int64, error) {
	res := tx.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]any{"revoked": true, "revoked_reason": reason})
	return res.RowsAffected, res.Error
}

// ListActiveByUser returns the live head of every family, newest first.
func (r *GormRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.RefreshToken, error) {
	var out []models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND revoked = ? AND consumed_at IS NULL AND expires_at > ?", userID, false, now).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// DeleteExpired removes whole families whose newest generation expired
// before the cutoff. Consumed generations of a family that is still alive are
// kept so replaying them is still detected as reuse.
func (r *GormRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	db := r.DB.WithContext(ctx)
	dead := db.Model(&models.RefreshToken{}).
		Select("family_id").
		Group("family_id").
		Having("MAX(expires_at) < ?", before)
	res := db.Where("family_id IN (?)", dead).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// RevokeUserFamily revokes familyID only when it belongs to userID.
func (r *GormRepo) RevokeUserFamily(ctx context.Context, userID, familyID uuid.UUID, reason string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND family_id = ? AND revoked = ?", userID, familyID, false).
		Updates(map[string]any{"revoked": true, "revoked_reason": reason})
	return res.RowsAffected, res.Error
}
