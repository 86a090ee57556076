package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/ratelimit"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/service"
	"github.com/joshuatxtcllc/framekraft-sub002/pkg/constant"
)

const claimsLocalKey = "auth_claims"

// ClaimsFromContext returns the verified access-token claims stored by
// RequireAuth, or nil outside an authenticated route.
func ClaimsFromContext(c *fiber.Ctx) *service.JWTCustomClaims {
	claims, _ := c.Locals(claimsLocalKey).(*service.JWTCustomClaims)
	return claims
}

// RequireAuth accepts the access token from the Authorization header or the
// httpOnly cookie and rejects the request unless it verifies.
func (h *AuthHandler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Cookies(constant.AccessTokenCookie)
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing access token"})
		}

		claims, err := h.tokenService.VerifyAccessToken(tokenString)
		if err != nil {
			return h.mapError(c, err)
		}

		c.Locals(claimsLocalKey, claims)

		return c.Next()
	}
}

// RequireRole guards a route group behind RequireAuth with a role allowlist.
func (h *AuthHandler) RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromContext(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		for _, role := range roles {
			if domain.Role(claims.Role) == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient role"})
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RateLimit gates requests on a fixed-window limiter keyed by client IP.
// Authenticated callers get their quota scaled by role; the middleware runs
// ahead of RequireAuth, so the token is verified best-effort just to pick
// the quota. The decision metadata is exposed on every response, accepted
// or not.
func (h *AuthHandler) RateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromContext(c)
		if claims == nil {
			claims = h.peekClaims(c)
		}

		var decision *ratelimit.Decision
		if claims != nil {
			decision = limiter.AllowForRole(c.Context(), c.IP(), domain.Role(claims.Role))
		} else {
			decision = limiter.Allow(c.Context(), c.IP())
		}

		setRateLimitHeaders(c, decision)

		if !decision.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"retry_after": int(decision.RetryAfter.Seconds()),
			})
		}

		return c.Next()
	}
}

// peekClaims verifies the access token without rejecting the request. A
// missing or bad token just means the anonymous quota applies; RequireAuth
// still owns the actual rejection.
func (h *AuthHandler) peekClaims(c *fiber.Ctx) *service.JWTCustomClaims {
	tokenString := bearerToken(c)
	if tokenString == "" {
		tokenString = c.Cookies(constant.AccessTokenCookie)
	}
	if tokenString == "" {
		return nil
	}

	claims, err := h.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil
	}

	return claims
}

// SlowDown stalls requests past the free quota instead of rejecting them.
func SlowDown(limiter *ratelimit.SlowDownLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if delay := limiter.Delay(c.Context(), c.IP()); delay > 0 {
			time.Sleep(delay)
		}
		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, d *ratelimit.Decision) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
	if d.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.RetryAfter.Seconds())))
	}
}
