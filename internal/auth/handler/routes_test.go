package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofiber/fiber/v2"

	"github.com/joshuatxtcllc/framekraft-sub002/config"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/handler"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/ratelimit"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/service"
)

// limitedApp mounts a trivial route behind the given limiter layers, which
// is all the middleware tests need. The returned token service signs access
// tokens the limiter will accept for role scaling.
func limitedApp(t *testing.T, limiters handler.Limiters) (*fiber.App, *service.TokenService) {
	t.Helper()

	tokens := service.NewTokenService("test-access-secret", "test-refresh-secret", 15, 10080)
	h := handler.NewAuthHandler(nil, tokens, &config.Config{})

	app := fiber.New()
	if limiters.General != nil {
		app.Use(h.RateLimit(limiters.General))
	}
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	return app, tokens
}

func newLimiterRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("rejects past the window with headers", func(t *testing.T) {
		_, rdb := newLimiterRedis(t)
		app, _ := limitedApp(t, handler.Limiters{
			General: ratelimit.NewLimiter(rdb, "general", 2, time.Minute),
		})

		for i := 0; i < 2; i++ {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
		}

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	})

	t.Run("window rollover admits the client again", func(t *testing.T) {
		mr, rdb := newLimiterRedis(t)
		app, _ := limitedApp(t, handler.Limiters{
			General: ratelimit.NewLimiter(rdb, "general", 1, time.Minute),
		})

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

		mr.FastForward(61 * time.Second)

		resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("fails open when redis is down", func(t *testing.T) {
		mr, rdb := newLimiterRedis(t)
		mr.Close()

		app, _ := limitedApp(t, handler.Limiters{
			General: ratelimit.NewLimiter(rdb, "general", 1, time.Minute),
		})

		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		}
	})

	t.Run("bearer token scales the quota by role", func(t *testing.T) {
		_, rdb := newLimiterRedis(t)
		app, tokens := limitedApp(t, handler.Limiters{
			General: ratelimit.NewLimiter(rdb, "general", 1, time.Minute),
		})

		access, _, _, err := tokens.Generate("user-123", "frames@example.com", "owner")
		require.NoError(t, err)

		// Anonymous quota is 1; the owner token doubles it, so the second
		// authenticated request from the same IP still passes.
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
		}

		req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("garbage bearer token falls back to the anonymous quota", func(t *testing.T) {
		_, rdb := newLimiterRedis(t)
		app, _ := limitedApp(t, handler.Limiters{
			General: ratelimit.NewLimiter(rdb, "general", 1, time.Minute),
		})

		req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer garbage")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))
	})
}

func TestSlowDownMiddleware(t *testing.T) {
	_, rdb := newLimiterRedis(t)

	app := fiber.New()
	app.Use(handler.SlowDown(ratelimit.NewSlowDownLimiter(rdb, "slow", 1, 30*time.Millisecond, 90*time.Millisecond, time.Minute)))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	// First request is inside the free quota.
	start := time.Now()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	fast := time.Since(start)

	// Second request pays the first delay step.
	start = time.Now()
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	slow := time.Since(start)

	assert.Less(t, fast, 30*time.Millisecond)
	assert.GreaterOrEqual(t, slow, 30*time.Millisecond)
}

func TestAuthRoutesRegistered(t *testing.T) {
	ta := setupApp(t)

	// A request to an unregistered path 404s; the auth surface does not.
	resp, err := ta.app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/auth/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	for _, path := range []string{
		"/api/v1/auth/register",
		"/api/v1/auth/login",
		"/api/v1/auth/refresh",
		"/api/v1/auth/logout",
		"/api/v1/auth/forgot-password",
		"/api/v1/auth/reset-password",
		"/api/v1/auth/verify-email",
		"/api/v1/auth/logout-all",
		"/api/v1/auth/change-password",
	} {
		req := httptest.NewRequest(fiber.MethodPost, path, nil)
		resp, err := ta.app.Test(req, -1)
		require.NoError(t, err)
		assert.NotEqual(t, http.StatusNotFound, resp.StatusCode, "route %s should exist", path)
	}
}
