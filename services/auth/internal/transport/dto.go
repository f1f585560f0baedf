package transport

import "time"

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,max=256"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"max=256"`
}

type CreateUserRequest struct {
	Email       string   `json:"email"       validate:"required,email,max=254"`
	Password    string   `json:"password"    validate:"required,min=8,max=72"`
	Role        string   `json:"role"        validate:"required,oneof=SUPER_ADMIN ADMIN MODERATOR EDITOR"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

type ChangeRoleRequest struct {
	Role        string   `json:"role"        validate:"required,oneof=SUPER_ADMIN ADMIN MODERATOR EDITOR"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

type RevokeSessionsRequest struct {
	FamilyID string `json:"familyId" validate:"omitempty,uuid"`
}

// UserView is the caller-facing identity. It never carries credentials.
type UserView struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type UserDetail struct {
	UserView
	Grants    []string  `json:"grants,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresAt    int64    `json:"expiresAt"`
	User         UserView `json:"user"`
}

type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

type SessionView struct {
	FamilyID   string    `json:"familyId"`
	Generation int       `json:"generation"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	UserAgent  string    `json:"userAgent,omitempty"`
	IP         string    `json:"ip,omitempty"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
