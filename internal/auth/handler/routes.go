package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/ratelimit"
)

// Limiters carries the request-level rate-limit layers wired in front of
// the auth routes. Any nil layer is skipped, which keeps tests and
// single-process setups free of a redis dependency.
type Limiters struct {
	General  *ratelimit.Limiter
	Auth     *ratelimit.Limiter
	SlowDown *ratelimit.SlowDownLimiter
}

func RegisterRoutes(app *fiber.App, h *AuthHandler, limiters Limiters) {
	if limiters.General != nil {
		app.Use(h.RateLimit(limiters.General))
	}

	auth := app.Group("/api/v1/auth")
	if limiters.SlowDown != nil {
		auth.Use(SlowDown(limiters.SlowDown))
	}
	if limiters.Auth != nil {
		auth.Use(h.RateLimit(limiters.Auth))
	}

	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/forgot-password", h.ForgotPassword)
	auth.Post("/reset-password", h.ResetPassword)
	auth.Post("/verify-email", h.VerifyEmail)

	protected := app.Group("/api/v1/auth", h.RequireAuth())
	protected.Post("/logout", h.Logout)
	protected.Post("/logout-all", h.LogoutAll)
	protected.Post("/change-password", h.ChangePassword)

	// Admin-only endpoints
	admin := app.Group("/api/v1/admin", h.RequireAuth(), h.RequireRole(domain.RoleAdmin))
	admin.Delete("/user/:id/sessions", h.ForceLogout)
	admin.Get("/user/:id/sessions", h.GetUserSessions)
	admin.Patch("/user/:id/deactivate", h.DeactivateUser)
}
