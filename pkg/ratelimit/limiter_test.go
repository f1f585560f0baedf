package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLimiter_Window(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)
	l := NewRedisLimiter(client, Config{Name: "login", Window: time.Minute, Max: 3})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mr.Exists("rate_limit:login:10.0.0.1"))

	now = now.Add(61 * time.Second)
	ok, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	t.Parallel()

	mr, client := newRedis(t)
	mr.Close()

	l := NewRedisLimiter(client, Config{Name: "login", Window: time.Minute, Max: 3})
	_, err := l.Allow(context.Background(), "k")
	require.Error(t, err)
}

func TestLocalLimiter(t *testing.T) {
	t.Parallel()

	l := NewLocalLimiter(Config{Window: time.Hour, Max: 2})
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok)
}

func TestLocalLimiter_EvictsIdleKeys(t *testing.T) {
	t.Parallel()

	l := NewLocalLimiter(Config{Window: time.Minute, Max: 1})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 100 {
		ok, err := l.Allow(ctx, fmt.Sprintf("10.0.0.%d", i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
	assert.Len(t, l.buckets, 100)

	now = now.Add(40 * time.Second)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	now = now.Add(50 * time.Second)
	ok, _ = l.Allow(ctx, "fresh")
	assert.True(t, ok)
	assert.Len(t, l.buckets, 2)

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "fresh")
	assert.True(t, ok)
	assert.Len(t, l.buckets, 1)
}

type stubLimiter struct {
	ok  bool
	err error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.ok, s.err }

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		lim  Limiter
		want int
	}{
		{name: "allowed", lim: stubLimiter{ok: true}, want: http.StatusOK},
		{name: "rejected", lim: stubLimiter{ok: false}, want: http.StatusTooManyRequests},
		{name: "limiter down fails open", lim: stubLimiter{err: errors.New("down")}, want: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			e.POST("/auth/login", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, Middleware(tt.lim, nil))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
