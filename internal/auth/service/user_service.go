package service

//go:generate mockgen -destination=../../mocks/mock_repositories.go -package=mocks github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain UserRepository,SessionRepository,ActionTokenRepository,Mailer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshuatxtcllc/framekraft-sub002/config"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/dto"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/password"
	autherror "github.com/joshuatxtcllc/framekraft-sub002/internal/errors"
	"github.com/joshuatxtcllc/framekraft-sub002/pkg/constant"
)

const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour
)

// BreachChecker is the optional k-anonymity lookup. A nil checker disables
// the feature.
type BreachChecker interface {
	IsCompromised(ctx context.Context, plain string) bool
}

// UserService composes the password policy, token service, account store and
// session store into the register/login/refresh/logout/reset use cases the
// HTTP handlers call.
type UserService struct {
	repo         domain.UserRepository
	sessions     domain.SessionRepository
	actions      domain.ActionTokenRepository
	tokenService TokenGenerator
	hasher       *password.Hasher
	breach       BreachChecker
	mailer       domain.Mailer
	cfg          *config.Config
}

func NewUserService(
	repo domain.UserRepository,
	sessions domain.SessionRepository,
	actions domain.ActionTokenRepository,
	tokenService TokenGenerator,
	hasher *password.Hasher,
	breach BreachChecker,
	mailer domain.Mailer,
	cfg *config.Config,
) *UserService {
	return &UserService{
		repo:         repo,
		sessions:     sessions,
		actions:      actions,
		tokenService: tokenService,
		hasher:       hasher,
		breach:       breach,
		mailer:       mailer,
		cfg:          cfg,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) validateNewPassword(ctx context.Context, candidate string) error {
	strength := password.ValidateStrength(candidate, password.DefaultPolicy())
	if !strength.Valid {
		return fmt.Errorf("%w: %s", autherror.ErrWeakPassword, strings.Join(strength.Errors, "; "))
	}
	if s.breach != nil && s.cfg.CheckBreachedPasswords && s.breach.IsCompromised(ctx, candidate) {
		return fmt.Errorf("%w: password appears in a known data breach", autherror.ErrWeakPassword)
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*dto.TokenResponse, error) {
	email := normalizeEmail(input.Email)

	if err := s.validateNewPassword(ctx, input.Password); err != nil {
		return nil, err
	}

	existingUser, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingUser != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		BusinessName: input.BusinessName,
		Role:         domain.RoleOwner,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	response, err := s.issueSession(ctx, user, input.Fingerprint, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}
	response.User = user

	s.sendVerificationEmail(ctx, user)

	return response, nil
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	email := normalizeEmail(input.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	// Lockout outranks the advisory credential window: both thresholds
	// default to the same count, and a locked account must always report
	// its deadline rather than a retry-after. It is also checked before
	// the password so a locked account rejects even correct credentials
	// until the window passes.
	if user != nil && user.IsLocked() {
		return nil, &autherror.AccountLockedError{LockUntil: *user.LockUntil}
	}

	failedAttempts, err := s.repo.CountRecentFailedAttempts(ctx, email, input.IPAddress, s.cfg.LoginWindowMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to check login attempts: %w", err)
	}
	if failedAttempts >= s.cfg.LoginMaxAttempts {
		return nil, autherror.ErrTooManyLoginAttempts
	}

	if user == nil {
		// Same failure as a wrong password so responses never reveal
		// whether the email exists.
		_ = s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, false)
		return nil, autherror.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, autherror.ErrAccountDeactivated
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		_ = s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, false)
		if _, err := s.repo.IncrementLoginAttempts(ctx, user.ID, s.cfg.LoginMaxAttempts,
			time.Duration(s.cfg.LockoutMinutes)*time.Minute); err != nil {
			log.Printf("warn: failed to increment login attempts for user %s: %v", user.ID, err)
		}
		return nil, autherror.ErrInvalidCredentials
	}

	if err := s.repo.ResetLoginAttempts(ctx, user.ID); err != nil {
		log.Printf("warn: failed to reset login attempts for user %s: %v", user.ID, err)
	}

	if err := s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, true); err != nil {
		log.Printf("warn: failed to record login attempt for %s: %v", email, err)
	}

	response, err := s.issueSession(ctx, user, input.Fingerprint, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}
	response.User = user

	return response, nil
}

func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	// Signature, expiry and type discriminator first; only then the store.
	if _, err := s.tokenService.VerifyRefreshToken(input.RefreshToken); err != nil {
		return nil, err
	}

	record, err := s.sessions.GetRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, autherror.ErrRefreshTokenNotFound
	}

	if record.DeviceFingerprint != "" && input.Fingerprint != "" &&
		record.DeviceFingerprint != input.Fingerprint {
		return nil, autherror.ErrDeviceFingerprintMismatch
	}

	// Rotation: claim the old token by deleting it before issuing the new
	// pair. Of two concurrent refreshes only the successful DELETE
	// proceeds; the other caller is told the session is gone.
	claimed, err := s.sessions.DeleteRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !claimed {
		return nil, autherror.ErrRefreshTokenNotFound
	}

	user, err := s.repo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrRefreshTokenNotFound
	}
	if !user.IsActive {
		return nil, autherror.ErrAccountDeactivated
	}

	return s.issueSession(ctx, user, input.Fingerprint, input.IPAddress, input.UserAgent)
}

// Logout deletes one session record. Deleting an unknown or already-deleted
// token is a no-op, so repeated logouts behave identically.
func (s *UserService) Logout(ctx context.Context, input dto.LogoutInput) error {
	if input.RefreshToken == "" {
		return nil
	}
	_, err := s.sessions.DeleteRefreshToken(ctx, input.RefreshToken)
	return err
}

// LogoutAll removes every session for the user: explicit "log out all
// devices", password change/reset cascade, and compromise response.
func (s *UserService) LogoutAll(ctx context.Context, userID string) error {
	return s.sessions.DeleteAllByUserID(ctx, userID)
}

// ForgotPassword always reports success so the endpoint cannot be used to
// probe which emails are registered.
func (s *UserService) ForgotPassword(ctx context.Context, input dto.ForgotPasswordInput) error {
	email := normalizeEmail(input.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		log.Printf("warn: forgot-password lookup failed for %s: %v", email, err)
		return nil
	}
	if user == nil {
		return nil
	}

	token := uuid.NewString()
	at := &domain.ActionToken{
		Token:     token,
		UserID:    user.ID,
		Purpose:   constant.PurposeResetPassword,
		ExpiresAt: time.Now().Add(resetTokenTTL),
		CreatedAt: time.Now(),
	}
	if err := s.actions.CreateActionToken(ctx, at); err != nil {
		log.Printf("warn: failed to create reset token for user %s: %v", user.ID, err)
		return nil
	}

	go func(email, token string) {
		if err := s.mailer.SendPasswordResetEmail(context.Background(), email, token); err != nil {
			log.Printf("warn: failed to send password reset email to %s: %v", email, err)
		}
	}(user.Email, token)

	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	if err := s.validateNewPassword(ctx, input.NewPassword); err != nil {
		return err
	}

	hashedPassword, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	// One transaction: spending the token, swapping the hash and revoking
	// the user's sessions either all land or none do, so a failure after
	// the consume cannot burn a still-unused token.
	userID, err := s.actions.RedeemPasswordReset(ctx, input.Token, hashedPassword)
	if err != nil {
		return err
	}
	if userID == "" {
		return autherror.ErrActionTokenInvalid
	}

	return nil
}

// ChangePassword re-verifies the current password even though the caller
// already holds a valid access token.
func (s *UserService) ChangePassword(ctx context.Context, userID string, input dto.ChangePasswordInput) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrInvalidCredentials
	}

	if !s.hasher.Verify(input.CurrentPassword, user.PasswordHash) {
		return autherror.ErrInvalidCredentials
	}

	if err := s.validateNewPassword(ctx, input.NewPassword); err != nil {
		return err
	}

	hashedPassword, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, hashedPassword); err != nil {
		return err
	}

	if err := s.LogoutAll(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate sessions after password change: %w", err)
	}

	return nil
}

func (s *UserService) VerifyEmail(ctx context.Context, input dto.VerifyEmailInput) error {
	userID, err := s.actions.RedeemEmailVerification(ctx, input.Token)
	if err != nil {
		return err
	}
	if userID == "" {
		return autherror.ErrActionTokenInvalid
	}

	return nil
}

// Deactivate soft-disables the account and cascades to its sessions: a
// disabled user must not keep any live refresh token.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	inactive := false
	user, err := s.repo.Update(ctx, userID, domain.UserUpdate{IsActive: &inactive})
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrInvalidCredentials
	}

	return s.LogoutAll(ctx, userID)
}

func (s *UserService) GetUserSessions(ctx context.Context, userID string) ([]dto.SessionOutput, error) {
	tokens, err := s.sessions.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions := make([]dto.SessionOutput, 0, len(tokens))
	for _, rt := range tokens {
		sessions = append(sessions, dto.SessionOutput{
			ID:                rt.ID,
			DeviceFingerprint: rt.DeviceFingerprint,
			IPAddress:         rt.IPAddress,
			UserAgent:         rt.UserAgent,
			CreatedAt:         rt.CreatedAt,
			ExpiresAt:         rt.ExpiresAt,
		})
	}

	return sessions, nil
}

// issueSession generates a token pair, persists the refresh token and prunes
// the user's session set down to the configured cap.
func (s *UserService) issueSession(ctx context.Context, user *domain.User, fingerprint, ip, userAgent string) (*dto.TokenResponse, error) {
	sessionID := uuid.NewString()

	accessToken, refreshToken, _, err := s.tokenService.GenerateWithSession(user.ID, user.Email, string(user.Role), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	now := time.Now()
	record := &domain.RefreshToken{
		ID:                sessionID,
		UserID:            user.ID,
		Token:             refreshToken,
		DeviceFingerprint: fingerprint,
		IPAddress:         ip,
		UserAgent:         userAgent,
		ExpiresAt:         now.Add(s.tokenService.GetRefreshTokenExpiry()),
		CreatedAt:         now,
	}
	if err := s.sessions.StoreRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	if err := s.sessions.PruneUserTokens(ctx, user.ID, s.cfg.MaxActiveRefreshTokens); err != nil {
		log.Printf("warn: failed to prune refresh tokens for user %s: %v", user.ID, err)
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    constant.DefaultTokenType,
		ExpiresIn:    int(s.tokenService.GetAccessTokenExpiry().Seconds()),
	}, nil
}

func (s *UserService) sendVerificationEmail(ctx context.Context, user *domain.User) {
	token := uuid.NewString()
	at := &domain.ActionToken{
		Token:     token,
		UserID:    user.ID,
		Purpose:   constant.PurposeVerifyEmail,
		ExpiresAt: time.Now().Add(verificationTokenTTL),
		CreatedAt: time.Now(),
	}
	if err := s.actions.CreateActionToken(ctx, at); err != nil {
		log.Printf("warn: failed to create verification token for user %s: %v", user.ID, err)
		return
	}

	// Fire and forget: a failed verification mail never fails registration.
	go func(email, token string) {
		if err := s.mailer.SendVerificationEmail(context.Background(), email, token); err != nil {
			log.Printf("warn: failed to send verification email to %s: %v", email, err)
		}
	}(user.Email, token)
}
