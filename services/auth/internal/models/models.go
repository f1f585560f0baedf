package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type User struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey"  json:"id"`
	Email               string         `gorm:"uniqueIndex;not null"  json:"email"`
	PasswordHash        string         `gorm:"not null"              json:"-"`
	Role                string         `gorm:"not null"              json:"role"`
	PermissionOverrides pq.StringArray `gorm:"type:text"             json:"permissionOverrides,omitempty"`
	IsActive            bool           `gorm:"not null;default:true" json:"isActive"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

type RefreshToken struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TokenHash     string     `gorm:"uniqueIndex;not null"`
	UserID        uuid.UUID  `gorm:"type:uuid;index;not null"`
	FamilyID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	Generation    int        `gorm:"not null;default:0"`
	ParentID      *uuid.UUID `gorm:"type:uuid"`
	ExpiresAt     time.Time  `gorm:"index;not null"`
	Revoked       bool       `gorm:"not null;default:false"`
	RevokedReason string
	ConsumedAt    *time.Time
	CreatedAt     time.Time
	UserAgent     string
	IP            string
}
