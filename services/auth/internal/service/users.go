package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkg_hash "github.com/Skotchmaster/registry_portal/pkg/hash"
	"github.com/Skotchmaster/registry_portal/pkg/logging"
	"github.com/Skotchmaster/registry_portal/pkg/rbac"
	"github.com/Skotchmaster/registry_portal/pkg/tokens"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/audit"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/models"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/repo"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/transport"
)

// Actor is the authenticated caller of an administrative operation.
type Actor struct {
	ID     uuid.UUID
	Role   rbac.Role
	Grants rbac.Set
}

func ActorFromClaims(c *tokens.AccessClaims) (Actor, error) {
	if c == nil {
		return Actor{}, ErrUnauthenticated
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: bad subject", ErrUnauthenticated)
	}
	return Actor{ID: id, Role: rbac.Role(c.Role), Grants: rbac.SetOf(c.Grants...)}, nil
}

// canHandle stops an actor from granting, or acting on, more than it holds.
func (a Actor) canHandle(role rbac.Role, grants rbac.Set) bool {
	return rbac.HasAllWithGrants(a.Role, a.Grants, rbac.Effective(role, grants))
}

func detailOf(u *models.User) *transport.UserDetail {
	return &transport.UserDetail{
		UserView:  viewOf(u),
		Grants:    grantsOf(u).Strings(),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func parseRoleAndGrants(role string, perms []string) (rbac.Role, rbac.Set, error) {
	r, err := rbac.ParseRole(role)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	grants, err := rbac.ParsePermissions(perms)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return r, grants, nil
}

// Profile resolves the caller's identity from a verified access token alone.
func (h *AuthService) Profile(token string) (transport.UserView, error) {
	claims, err := h.Verifier.Verify(token)
	if err != nil {
		return transport.UserView{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	perms := claims.Permissions
	if perms == nil {
		perms = []string{}
	}
	return transport.UserView{
		ID:          claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: perms,
	}, nil
}

func (h *AuthService) Sessions(ctx context.Context, userID uuid.UUID) ([]transport.SessionView, error) {
	recs, err := h.Repo.ListActiveByUser(ctx, userID, h.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]transport.SessionView, 0, len(recs))
	for _, r := range recs {
		out = append(out, transport.SessionView{
			FamilyID:   r.FamilyID.String(),
			Generation: r.Generation,
			CreatedAt:  r.CreatedAt,
			ExpiresAt:  r.ExpiresAt,
			UserAgent:  r.UserAgent,
			IP:         r.IP,
		})
	}
	return out, nil
}

// Revoke ends one family of userID, or every family when familyID is Nil.
func (h *AuthService) Revoke(ctx context.Context, actor Actor, userID, familyID uuid.UUID) (int64, error) {
	l := logging.FromContext(ctx).With("svc", "auth.revoke", "actor_id", actor.ID)

	target, err := h.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("revoke: %w", err)
	}
	if !actor.canHandle(rbac.Role(target.Role), grantsOf(target)) {
		l.Warn("revoke_forbidden", "status", 403, "user_id", userID, "role", target.Role)
		return 0, ErrForbidden
	}

	var n int64
	if familyID == uuid.Nil {
		n, err = h.Repo.RevokeAllForUser(ctx, userID, reasonAdmin)
	} else {
		n, err = h.Repo.RevokeUserFamily(ctx, userID, familyID, reasonAdmin)
	}
	if err != nil {
		l.Error("revoke_failed", "user_id", userID, "family_id", familyID, "error", err)
		return 0, fmt.Errorf("revoke: %w", err)
	}

	if n > 0 {
		h.Metrics.Revocation(reasonAdmin)
		e := audit.Event{
			Type:    audit.FamilyRevoked,
			UserID:  userID.String(),
			ActorID: actor.ID.String(),
			Reason:  reasonAdmin,
		}
		if familyID != uuid.Nil {
			e.FamilyID = familyID.String()
		}
		h.record(ctx, e)
	}
	l.Info("sessions_revoked", "user_id", userID, "family_id", familyID, "count", n)
	return n, nil
}

func (h *AuthService) CreateUser(ctx context.Context, actor Actor, req transport.CreateUserRequest) (*transport.UserDetail, error) {
	l := logging.FromContext(ctx).With("svc", "auth.create_user", "actor_id", actor.ID)

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrValidation
	}
	role, grants, err := parseRoleAndGrants(req.Role, req.Permissions)
	if err != nil {
		return nil, err
	}
	if !actor.canHandle(role, grants) {
		l.Warn("create_user_forbidden", "status", 403, "role", role)
		return nil, ErrForbidden
	}

	pwHash, err := pkg_hash.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user := &models.User{
		ID:                  uuid.New(),
		Email:               email,
		PasswordHash:        pwHash,
		Role:                string(role),
		PermissionOverrides: grants.Strings(),
		IsActive:            true,
	}
	if err := h.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("create_user_conflict", "status", 409)
			return nil, ErrConflict
		}
		l.Error("create_user_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	h.record(ctx, audit.Event{
		Type:    audit.UserCreated,
		UserID:  user.ID.String(),
		ActorID: actor.ID.String(),
		Reason:  string(role),
	})
	l.Info("user_created", "user_id", user.ID, "role", role)
	return detailOf(user), nil
}

func (h *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*transport.UserDetail, error) {
	u, err := h.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return detailOf(u), nil
}

// ChangeRole replaces the role and overrides of a user and ends all of the
// user's sessions so the change applies from the next login.
func (h *AuthService) ChangeRole(ctx context.Context, actor Actor, id uuid.UUID, role string, perms []string) (*transport.UserDetail, error) {
	l := logging.FromContext(ctx).With("svc", "auth.change_role", "actor_id", actor.ID, "user_id", id)

	newRole, grants, err := parseRoleAndGrants(role, perms)
	if err != nil {
		return nil, err
	}
	target, err := h.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("change role: %w", err)
	}
	if !actor.canHandle(rbac.Role(target.Role), grantsOf(target)) || !actor.canHandle(newRole, grants) {
		l.Warn("change_role_forbidden", "status", 403, "from", target.Role, "to", newRole)
		return nil, ErrForbidden
	}

	n, err := h.Repo.UpdateRole(ctx, id, string(newRole), grants.Strings(), reasonRoleChanged)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		l.Error("change_role_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("change role: %w", err)
	}
	if n > 0 {
		h.Metrics.Revocation(reasonRoleChanged)
	}

	h.record(ctx, audit.Event{
		Type:    audit.RoleChanged,
		UserID:  id.String(),
		ActorID: actor.ID.String(),
		Reason:  target.Role + "->" + string(newRole),
	})
	l.Info("role_changed", "from", target.Role, "to", newRole)

	target.Role = string(newRole)
	target.PermissionOverrides = grants.Strings()
	return detailOf(target), nil
}

// Deactivate soft-deletes a user and ends every session it holds.
func (h *AuthService) Deactivate(ctx context.Context, actor Actor, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "auth.deactivate", "actor_id", actor.ID, "user_id", id)

	if actor.ID == id {
		return fmt.Errorf("%w: cannot deactivate yourself", ErrValidation)
	}
	target, err := h.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deactivate: %w", err)
	}
	if !actor.canHandle(rbac.Role(target.Role), grantsOf(target)) {
		l.Warn("deactivate_forbidden", "status", 403, "role", target.Role)
		return ErrForbidden
	}

	n, err := h.Repo.Deactivate(ctx, id, reasonDeactivated)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		l.Error("deactivate_failed", "status", 500, "error", err)
		return fmt.Errorf("deactivate: %w", err)
	}
	if n > 0 {
		h.Metrics.Revocation(reasonDeactivated)
	}

	h.record(ctx, audit.Event{
		Type:    audit.UserDeactivated,
		UserID:  id.String(),
		ActorID: actor.ID.String(),
	})
	l.Info("user_deactivated")
	return nil
}

// Bootstrap makes sure a SUPER_ADMIN with email exists. An existing account
// is left untouched.
func (h *AuthService) Bootstrap(ctx context.Context, email, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.bootstrap")

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: pwHash,
		Role:         string(rbac.RoleSuperAdmin),
		IsActive:     true,
	}
	if err := h.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Info("bootstrap_admin_exists")
			return nil
		}
		return fmt.Errorf("bootstrap: %w", err)
	}
	l.Info("bootstrap_admin_created", "user_id", user.ID)
	return nil
}

// PurgeExpired deletes refresh records that expired more than retention ago.
func (h *AuthService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := h.Repo.DeleteExpired(ctx, h.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	h.Metrics.Purged(n)
	return n, nil
}

func (h *AuthService) Ready(ctx context.Context) error {
	return h.Repo.Ping(ctx)
}
