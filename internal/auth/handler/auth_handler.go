package handler

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/joshuatxtcllc/framekraft-sub002/config"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/dto"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/service"
	autherror "github.com/joshuatxtcllc/framekraft-sub002/internal/errors"
	"github.com/joshuatxtcllc/framekraft-sub002/pkg/constant"
)

type AuthHandler struct {
	userService  *service.UserService
	tokenService service.TokenGenerator
	cfg          *config.Config
}

func NewAuthHandler(userService *service.UserService, tokenService service.TokenGenerator, cfg *config.Config) *AuthHandler {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &AuthHandler{userService: userService, tokenService: tokenService, cfg: cfg}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())
	input.Fingerprint = c.Get("X-Device-Fingerprint")

	response, err := h.userService.Register(c.Context(), input)
	if err != nil {
		return h.mapError(c, err)
	}

	h.setTokenCookies(c, response)

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())
	input.Fingerprint = c.Get("X-Device-Fingerprint")

	response, err := h.userService.Login(c.Context(), input)
	if err != nil {
		return h.mapError(c, err)
	}

	h.setTokenCookies(c, response)

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(constant.RefreshTokenCookie)
	}

	input.Fingerprint = c.Get("X-Device-Fingerprint")
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	response, err := h.userService.Refresh(c.Context(), input)
	if err != nil {
		return h.mapError(c, err)
	}

	h.setTokenCookies(c, response)

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.LogoutInput
	if err := c.BodyParser(&input); err != nil {
		// Body is optional: cookie-only clients send none.
		input = dto.LogoutInput{}
	}

	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(constant.RefreshTokenCookie)
	}

	if err := h.userService.Logout(c.Context(), input); err != nil {
		return h.mapError(c, err)
	}

	h.clearTokenCookies(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	if err := h.userService.LogoutAll(c.Context(), claims.UserID); err != nil {
		return h.mapError(c, err)
	}

	h.clearTokenCookies(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out everywhere"})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var input dto.ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	// The response is identical whether or not the email exists.
	if err := h.userService.ForgotPassword(c.Context(), input); err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "if that email is registered, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.userService.ResetPassword(c.Context(), input); err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "password has been reset"})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var input dto.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.userService.ChangePassword(c.Context(), claims.UserID, input); err != nil {
		return h.mapError(c, err)
	}

	h.clearTokenCookies(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "password changed, please log in again"})
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var input dto.VerifyEmailInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.userService.VerifyEmail(c.Context(), input); err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "email verified"})
}

func (h *AuthHandler) ForceLogout(c *fiber.Ctx) error {
	userID := c.Params("id")
	if err := h.userService.LogoutAll(c.Context(), userID); err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "sessions revoked"})
}

func (h *AuthHandler) DeactivateUser(c *fiber.Ctx) error {
	userID := c.Params("id")
	if err := h.userService.Deactivate(c.Context(), userID); err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "account deactivated"})
}

func (h *AuthHandler) GetUserSessions(c *fiber.Ctx) error {
	userID := c.Params("id")
	sessions, err := h.userService.GetUserSessions(c.Context(), userID)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"sessions": sessions})
}

// mapError translates the service error taxonomy to HTTP. Backend failures
// collapse to a generic 500 and are logged with full context server-side.
func (h *AuthHandler) mapError(c *fiber.Ctx, err error) error {
	var locked *autherror.AccountLockedError
	if errors.As(err, &locked) {
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"error":      "account temporarily locked",
			"lock_until": locked.LockUntil,
		})
	}

	switch {
	case errors.Is(err, autherror.ErrEmailAlreadyInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, autherror.ErrWeakPassword),
		errors.Is(err, autherror.ErrActionTokenInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, autherror.ErrTooManyLoginAttempts):
		retryAfter := h.cfg.LoginWindowMinutes * 60
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       err.Error(),
			"retry_after": retryAfter,
		})
	case errors.Is(err, autherror.ErrAccountDeactivated):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, autherror.ErrInvalidCredentials),
		errors.Is(err, autherror.ErrRefreshTokenNotFound),
		errors.Is(err, autherror.ErrRefreshTokenExpired),
		errors.Is(err, autherror.ErrTokenExpired),
		errors.Is(err, autherror.ErrTokenInvalid),
		errors.Is(err, autherror.ErrTokenWrongType),
		errors.Is(err, autherror.ErrDeviceFingerprintMismatch):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("error: %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

func (h *AuthHandler) setTokenCookies(c *fiber.Ctx, response *dto.TokenResponse) {
	secure := h.cfg.IsProduction()

	c.Cookie(&fiber.Cookie{
		Name:     constant.AccessTokenCookie,
		Value:    response.AccessToken,
		MaxAge:   int(h.tokenService.GetAccessTokenExpiry().Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Domain:   h.cfg.CookieDomain,
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshTokenCookie,
		Value:    response.RefreshToken,
		MaxAge:   int(h.tokenService.GetRefreshTokenExpiry().Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Domain:   h.cfg.CookieDomain,
		Path:     "/",
	})
}

func (h *AuthHandler) clearTokenCookies(c *fiber.Ctx) {
	for _, name := range []string{constant.AccessTokenCookie, constant.RefreshTokenCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteStrictMode,
			Path:     "/",
		})
	}
}
