package repo

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/registry_portal/pkg/db"
	"github.com/Skotchmaster/registry_portal/services/auth/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	gdb, err := db.Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	r := &GormRepo{DB: gdb}
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func newUser(t *testing.T, r *GormRepo, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", Role: "EDITOR", IsActive: true}
	require.NoError(t, r.CreateUserIfNotExists(context.Background(), u))
	return u
}

func newToken(userID, family uuid.UUID, gen int, exp time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		ID:         uuid.New(),
		TokenHash:  uuid.NewString(),
		UserID:     userID,
		FamilyID:   family,
		Generation: gen,
		ExpiresAt:  exp,
	}
}

func TestUsers(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := newUser(t, r, "editor@example.com")
	assert.NotEqual(t, uuid.Nil, u.ID)

	dup := &models.User{Email: "editor@example.com", PasswordHash: "y", Role: "ADMIN", IsActive: true}
	assert.ErrorIs(t, r.CreateUserIfNotExists(ctx, dup), ErrUserAlreadyExist)

	got, err := r.GetUserByEmail(ctx, "editor@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "EDITOR", got.Role)
	assert.True(t, got.IsActive)

	_, err = r.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.CreateRefresh(ctx, newToken(u.ID, uuid.New(), 0, now.Add(time.Hour))))
	n, err := r.UpdateRole(ctx, u.ID, "MODERATOR", []string{"audit:read"}, "role_changed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err = r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "MODERATOR", got.Role)
	assert.Equal(t, []string{"audit:read"}, []string(got.PermissionOverrides))

	require.NoError(t, r.CreateRefresh(ctx, newToken(u.ID, uuid.New(), 0, now.Add(time.Hour))))
	n, err = r.Deactivate(ctx, u.ID, "deactivated")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err = r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	active, err := r.ListActiveByUser(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = r.Deactivate(ctx, uuid.New(), "deactivated")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.UpdateRole(ctx, uuid.New(), "ADMIN", nil, "role_changed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserUpdatesRollBackWhenRevokeFails(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	u := newUser(t, r, "atomic@example.com")
	require.NoError(t, r.DB.Migrator().DropTable(&models.RefreshToken{}))

	_, err := r.UpdateRole(ctx, u.ID, "ADMIN", nil, "role_changed")
	require.Error(t, err)
	_, err = r.Deactivate(ctx, u.ID, "deactivated")
	require.Error(t, err)

	got, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "EDITOR", got.Role)
	assert.True(t, got.IsActive)
}

func TestRotateRefresh(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	u := newUser(t, r, "rotate@example.com")
	now := time.Now().UTC()
	family := uuid.New()

	first := newToken(u.ID, family, 0, now.Add(time.Hour))
	require.NoError(t, r.CreateRefresh(ctx, first))

	second := newToken(u.ID, family, 1, now.Add(time.Hour))
	second.ParentID = &first.ID
	require.NoError(t, r.RotateRefresh(ctx, first.ID, now, second))

	old, err := r.FindRefreshByHash(ctx, first.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, old.ConsumedAt)

	third := newToken(u.ID, family, 1, now.Add(time.Hour))
	assert.ErrorIs(t, r.RotateRefresh(ctx, first.ID, now, third), ErrAlreadyConsumed)

	_, err = r.FindRefreshByID(ctx, third.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRotateRefresh_Concurrent(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	u := newUser(t, r, "race@example.com")
	now := time.Now().UTC()
	family := uuid.New()

	root := newToken(u.ID, family, 0, now.Add(time.Hour))
	require.NoError(t, r.CreateRefresh(ctx, root))

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.RotateRefresh(ctx, root.ID, now, newToken(u.ID, family, 1, now.Add(time.Hour)))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrAlreadyConsumed)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	active, err := r.ListActiveByUser(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRevokeScopes(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	u := newUser(t, r, "scope@example.com")
	now := time.Now().UTC()

	famA, famB := uuid.New(), uuid.New()
	a0 := newToken(u.ID, famA, 0, now.Add(time.Hour))
	b0 := newToken(u.ID, famB, 0, now.Add(time.Hour))
	require.NoError(t, r.CreateRefresh(ctx, a0))
	require.NoError(t, r.CreateRefresh(ctx, b0))

	n, err := r.RevokeFamily(ctx, famA, "logout")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gotA, err := r.FindRefreshByID(ctx, a0.ID)
	require.NoError(t, err)
	assert.True(t, gotA.Revoked)
	assert.Equal(t, "logout", gotA.RevokedReason)

	active, err := r.ListActiveByUser(ctx, u.ID, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b0.ID, active[0].ID)

	n, err = r.RevokeAllForUser(ctx, u.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active, err = r.ListActiveByUser(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Empty(t, active)

	second := newToken(u.ID, famB, 1, now.Add(time.Hour))
	assert.ErrorIs(t, r.RotateRefresh(ctx, b0.ID, now, second), ErrAlreadyConsumed)
}

func TestDeleteExpired(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	u := newUser(t, r, "purge@example.com")
	now := time.Now().UTC()

	stale := newToken(u.ID, uuid.New(), 0, now.Add(-2*time.Hour))
	live := newToken(u.ID, uuid.New(), 0, now.Add(time.Hour))
	require.NoError(t, r.CreateRefresh(ctx, stale))
	require.NoError(t, r.CreateRefresh(ctx, live))

	rotated := uuid.New()
	old := newToken(u.ID, rotated, 0, now.Add(-2*time.Hour))
	head := newToken(u.ID, rotated, 1, now.Add(time.Hour))
	require.NoError(t, r.CreateRefresh(ctx, old))
	require.NoError(t, r.RotateRefresh(ctx, old.ID, now.Add(-3*time.Hour), head))

	n, err := r.DeleteExpired(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = r.FindRefreshByID(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.FindRefreshByID(ctx, live.ID)
	require.NoError(t, err)

	kept, err := r.FindRefreshByID(ctx, old.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept.ConsumedAt)
	_, err = r.FindRefreshByID(ctx, head.ID)
	require.NoError(t, err)

	n, err = r.DeleteExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPing(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	require.NoError(t, r.Ping(context.Background()))
}
