package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret-test-jwt-secret!")

func fixed(t time.Time) Clock { return func() time.Time { return t } }

func testSubject() Subject {
	return Subject{
		UserID:      uuid.NewString(),
		Email:       "editor@example.com",
		Role:        "EDITOR",
		Permissions: []string{"news:create", "news:update"},
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, 15*time.Minute, fixed(now))
	ver := NewVerifier(testSecret, fixed(now))

	sub := testSubject()
	token, exp, err := iss.Issue(sub)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), exp)

	claims, err := ver.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, sub.UserID, claims.Subject)
	assert.Equal(t, sub.Email, claims.Email)
	assert.Equal(t, sub.Role, claims.Role)
	assert.Equal(t, sub.Permissions, claims.Permissions)
	assert.Empty(t, claims.Grants)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, now, claims.IssuedAt.Time.UTC())
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, time.Minute, fixed(issued))
	token, exp, err := iss.Issue(testSubject())
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{name: "one second before exp", at: exp.Add(-time.Second)},
		{name: "exactly exp", at: exp, wantErr: ErrAccessExpired},
		{name: "one second after exp", at: exp.Add(time.Second), wantErr: ErrAccessExpired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := NewVerifier(testSecret, fixed(tt.at)).Verify(token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, claims)
		})
	}
}

func TestVerify_Invalid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	sub := testSubject()
	good, _, err := NewIssuer(testSecret, time.Minute, fixed(now)).Issue(sub)
	require.NoError(t, err)

	otherKey, _, err := NewIssuer([]byte("another-secret"), time.Minute, fixed(now)).Issue(sub)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessClaims{
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Role:             "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub.UserID},
	}).SignedString(testSecret)
	require.NoError(t, err)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"wrong key": otherKey,
		"wrong alg": hs512,
		"no role":   noRole,
		"no exp":    noExp,
		"tampered":  tampered,
	}

	ver := NewVerifier(testSecret, fixed(now))
	for name, token := range tests {
		claims, err := ver.Verify(token)
		assert.ErrorIs(t, err, ErrAccessInvalid, name)
		assert.Nil(t, claims, name)
	}
}

func TestIssue_RequiresSubject(t *testing.T) {
	t.Parallel()

	_, _, err := NewIssuer(testSecret, time.Minute, nil).Issue(Subject{Role: "EDITOR"})
	require.Error(t, err)
}

func TestIssue_UniqueJTI(t *testing.T) {
	t.Parallel()

	now := time.Now()
	iss := NewIssuer(testSecret, time.Minute, fixed(now))
	ver := NewVerifier(testSecret, fixed(now))
	sub := testSubject()

	a, _, err := iss.Issue(sub)
	require.NoError(t, err)
	b, _, err := iss.Issue(sub)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	ca, err := ver.Verify(a)
	require.NoError(t, err)
	cb, err := ver.Verify(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestRefreshValue(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		v, err := NewRefreshValue()
		require.NoError(t, err)
		assert.Len(t, v, 43)
		_, dup := seen[v]
		require.False(t, dup)
		seen[v] = struct{}{}
	}

	h := HashRefresh("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefresh("abc"))
	assert.NotEqual(t, h, HashRefresh("abd"))
}
