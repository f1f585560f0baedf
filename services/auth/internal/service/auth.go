package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	pkg_hash "github.com/Skotchmaster/registry_portal/pkg/hash"
	"github.com/Skotchmaster/registry_portal/pkg/logging"
	"github.com/Skotchmaster/registry_portal/pkg/metrics"
	"github.com/Skotchmaster/registry_portal/pkg/rbac"
	"github.com/Skotchmaster/registry_portal/pkg/tokens"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/audit"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/models"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/repo"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/transport"
)

const (
	reasonLogout       = "logout"
	reasonReuse        = "reuse"
	reasonUserInactive = "user_inactive"
	reasonRoleChanged  = "role_changed"
	reasonDeactivated  = "user_deactivated"
	reasonAdmin        = "admin_revoke"
)

type AuthService struct {
	Repo       *repo.GormRepo
	Issuer     *tokens.Issuer
	Verifier   *tokens.Verifier
	RefreshTTL time.Duration
	Audit      audit.Sink
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Meta describes the client a session was opened from.
type Meta struct {
	UserAgent string
	IP        string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	FamilyID     uuid.UUID
	User         transport.UserView
}

func (h *AuthService) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *AuthService) record(ctx context.Context, e audit.Event) {
	if h.Audit == nil {
		return
	}
	if e.At.IsZero() {
		e.At = h.now()
	}
	_ = h.Audit.Record(ctx, e)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// grantsOf drops stored overrides that are no longer part of the universe.
func grantsOf(u *models.User) rbac.Set {
	out := rbac.Set{}
	for _, g := range u.PermissionOverrides {
		if p := rbac.Permission(g); rbac.IsKnown(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

func viewOf(u *models.User) transport.UserView {
	role := rbac.Role(u.Role)
	return transport.UserView{
		ID:          u.ID.String(),
		Email:       u.Email,
		Role:        u.Role,
		Permissions: rbac.Effective(role, grantsOf(u)).Strings(),
	}
}

func (h *AuthService) Login(ctx context.Context, email, password string, meta Meta) (*LoginResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := h.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			l.Error("login_failed", "status", 500, "error", err)
			h.Metrics.Login("error")
			return nil, fmt.Errorf("login: %w", err)
		}
		pkg_hash.Burn(password)
		return nil, h.loginFailed(ctx, l, "", email, "unknown_email", meta)
	}

	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		return nil, h.loginFailed(ctx, l, user.ID.String(), email, "wrong_password", meta)
	}
	if !user.IsActive {
		return nil, h.loginFailed(ctx, l, user.ID.String(), email, "inactive", meta)
	}

	res, err := h.Issue(ctx, user, meta)
	if err != nil {
		l.Error("login_failed", "status", 500, "user_id", user.ID, "error", err)
		h.Metrics.Login("error")
		return nil, err
	}

	h.Metrics.Login("success")
	h.record(ctx, audit.Event{
		Type:     audit.LoginSucceeded,
		UserID:   user.ID.String(),
		FamilyID: res.FamilyID.String(),
		IP:       meta.IP,
	})
	l.Info("login_successful", "user_id", user.ID, "family_id", res.FamilyID)
	return res, nil
}

func (h *AuthService) loginFailed(ctx context.Context, l *slog.Logger, userID, email, reason string, meta Meta) error {
	l.Warn("login_failed", "status", 401, "user_id", userID, "reason", reason)
	h.Metrics.Login("invalid_credentials")
	h.record(ctx, audit.Event{
		Type:   audit.LoginFailed,
		UserID: userID,
		Email:  email,
		Reason: reason,
		IP:     meta.IP,
	})
	return ErrInvalidCredentials
}

func (h *AuthService) accessFor(user *models.User) (string, time.Time, transport.UserView, error) {
	view := viewOf(user)
	grants := grantsOf(user)
	token, exp, err := h.Issuer.Issue(tokens.Subject{
		UserID:      view.ID,
		Email:       view.Email,
		Role:        view.Role,
		Permissions: view.Permissions,
		Grants:      grants.Strings(),
	})
	if err != nil {
		return "", time.Time{}, transport.UserView{}, fmt.Errorf("issue access: %w", err)
	}
	return token, exp, view, nil
}

// Issue opens a new session: an access token and generation 0 of a fresh
// refresh-token family.
func (h *AuthService) Issue(ctx context.Context, user *models.User, meta Meta) (*LoginResult, error) {
	access, accessExp, view, err := h.accessFor(user)
	if err != nil {
		return nil, err
	}

	raw, err := tokens.NewRefreshValue()
	if err != nil {
		return nil, err
	}
	now := h.now()
	rec := &models.RefreshToken{
		ID:         uuid.New(),
		TokenHash:  tokens.HashRefresh(raw),
		UserID:     user.ID,
		FamilyID:   uuid.New(),
		Generation: 0,
		ExpiresAt:  now.Add(h.RefreshTTL),
		CreatedAt:  now,
		UserAgent:  meta.UserAgent,
		IP:         meta.IP,
	}
	if err := h.Repo.CreateRefresh(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh: %w", err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: raw,
		AccessExp:    accessExp,
		RefreshExp:   rec.ExpiresAt,
		FamilyID:     rec.FamilyID,
		User:         view,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed; presenting it again revokes its whole family.
func (h *AuthService) Refresh(ctx context.Context, raw string, meta Meta) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if raw == "" {
		return nil, h.refreshRejected(ctx, l, nil, "empty", ErrInvalidRefreshToken)
	}

	rec, err := h.Repo.FindRefreshByHash(ctx, tokens.HashRefresh(raw))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, h.refreshRejected(ctx, l, nil, "unknown", ErrInvalidRefreshToken)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("refresh lookup: %w", err)
	}

	if rec.ConsumedAt != nil {
		return nil, h.reuse(ctx, l, rec)
	}
	if rec.Revoked {
		return nil, h.refreshRejected(ctx, l, rec, "revoked", ErrTokenFamilyRevoked)
	}
	now := h.now()
	if !now.Before(rec.ExpiresAt) {
		return nil, h.refreshRejected(ctx, l, rec, "expired", ErrRefreshExpired)
	}

	user, err := h.Repo.GetUserByID(ctx, rec.UserID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		l.Error("refresh_failed", "status", 500, "user_id", rec.UserID, "error", err)
		return nil, fmt.Errorf("refresh user: %w", err)
	}
	if user == nil || !user.IsActive {
		h.revokeFamily(ctx, l, rec.UserID, rec.FamilyID, reasonUserInactive)
		return nil, h.refreshRejected(ctx, l, rec, reasonUserInactive, ErrInvalidRefreshToken)
	}

	access, accessExp, view, err := h.accessFor(user)
	if err != nil {
		return nil, err
	}
	nextRaw, err := tokens.NewRefreshValue()
	if err != nil {
		return nil, err
	}
	parent := rec.ID
	next := &models.RefreshToken{
		ID:         uuid.New(),
		TokenHash:  tokens.HashRefresh(nextRaw),
		UserID:     rec.UserID,
		FamilyID:   rec.FamilyID,
		Generation: rec.Generation + 1,
		ParentID:   &parent,
		ExpiresAt:  now.Add(h.RefreshTTL),
		CreatedAt:  now,
		UserAgent:  meta.UserAgent,
		IP:         meta.IP,
	}

	if err := h.Repo.RotateRefresh(ctx, rec.ID, now, next); err != nil {
		if errors.Is(err, repo.ErrAlreadyConsumed) {
			return nil, h.reuse(ctx, l, rec)
		}
		l.Error("refresh_failed", "status", 500, "user_id", rec.UserID, "family_id", rec.FamilyID, "error", err)
		return nil, fmt.Errorf("rotate refresh: %w", err)
	}

	h.Metrics.Refresh("rotated")
	h.record(ctx, audit.Event{
		Type:     audit.RefreshRotated,
		UserID:   rec.UserID.String(),
		FamilyID: rec.FamilyID.String(),
		IP:       meta.IP,
	})
	l.Info("refresh_rotated", "user_id", rec.UserID, "family_id", rec.FamilyID, "generation", next.Generation)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: nextRaw,
		AccessExp:    accessExp,
		RefreshExp:   next.ExpiresAt,
		FamilyID:     rec.FamilyID,
		User:         view,
	}, nil
}

func (h *AuthService) refreshRejected(ctx context.Context, l *slog.Logger, rec *models.RefreshToken, reason string, err error) error {
	e := audit.Event{Type: audit.RefreshRejected, Reason: reason}
	if rec != nil {
		e.UserID = rec.UserID.String()
		e.FamilyID = rec.FamilyID.String()
		l.Warn("refresh_rejected", "status", 401, "reason", reason, "user_id", rec.UserID, "family_id", rec.FamilyID)
	} else {
		l.Warn("refresh_rejected", "status", 401, "reason", reason)
	}
	h.Metrics.Refresh(reason)
	h.record(ctx, e)
	return err
}

// reuse handles a consumed token being presented again. The family dies,
// including whatever the legitimate rotation produced.
func (h *AuthService) reuse(ctx context.Context, l *slog.Logger, rec *models.RefreshToken) error {
	l.Error("refresh_reuse_detected", "status", 401, "user_id", rec.UserID, "family_id", rec.FamilyID, "generation", rec.Generation)
	h.revokeFamily(ctx, l, rec.UserID, rec.FamilyID, reasonReuse)
	h.Metrics.Refresh("reuse")
	h.record(ctx, audit.Event{
		Type:     audit.ReuseDetected,
		UserID:   rec.UserID.String(),
		FamilyID: rec.FamilyID.String(),
		Reason:   reasonReuse,
	})
	return ErrReuseDetected
}

func (h *AuthService) revokeFamily(ctx context.Context, l *slog.Logger, userID, familyID uuid.UUID, reason string) {
	n, err := h.Repo.RevokeFamily(ctx, familyID, reason)
	if err != nil {
		l.Error("revoke_family_failed", "user_id", userID, "family_id", familyID, "reason", reason, "error", err)
		return
	}
	if n > 0 {
		h.Metrics.Revocation(reason)
		h.record(ctx, audit.Event{
			Type:     audit.FamilyRevoked,
			UserID:   userID.String(),
			FamilyID: familyID.String(),
			Reason:   reason,
		})
	}
}

// Logout revokes the family of the presented token. Unknown or empty tokens
// are not an error.
func (h *AuthService) Logout(ctx context.Context, raw string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	if raw == "" {
		return nil
	}

	rec, err := h.Repo.FindRefreshByHash(ctx, tokens.HashRefresh(raw))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		l.Error("logout_failed", "status", 500, "error", err)
		return fmt.Errorf("logout lookup: %w", err)
	}

	n, err := h.Repo.RevokeFamily(ctx, rec.FamilyID, reasonLogout)
	if err != nil {
		l.Error("logout_failed", "status", 500, "user_id", rec.UserID, "family_id", rec.FamilyID, "error", err)
		return fmt.Errorf("logout revoke: %w", err)
	}
	if n > 0 {
		h.Metrics.Revocation(reasonLogout)
		h.record(ctx, audit.Event{
			Type:     audit.FamilyRevoked,
			UserID:   rec.UserID.String(),
			FamilyID: rec.FamilyID.String(),
			Reason:   reasonLogout,
		})
	}
	l.Info("successful_logout", "user_id", rec.UserID, "family_id", rec.FamilyID)
	return nil
}
