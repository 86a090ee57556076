package domain

import (
	"context"
	"time"
)

// UserRepository is the account store. Lookups return (nil, nil) when no row
// matches so callers decide the disclosure policy themselves.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id string, fields UserUpdate) (*User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// IncrementLoginAttempts bumps the failure counter atomically. A stale,
	// already-expired lock resets the counter to 1 instead of counting past
	// it; reaching maxAttempts sets lock_until = now + lockFor.
	IncrementLoginAttempts(ctx context.Context, id string, maxAttempts int, lockFor time.Duration) (*LockState, error)
	ResetLoginAttempts(ctx context.Context, id string) error

	RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error
	CountRecentFailedAttempts(ctx context.Context, email, ip string, windowMinutes int) (int, error)
}

// SessionRepository owns refresh-token records and is their only writer.
type SessionRepository interface {
	StoreRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	// DeleteRefreshToken reports whether this call removed the row. Under
	// concurrent rotation exactly one caller sees true.
	DeleteRefreshToken(ctx context.Context, token string) (bool, error)
	DeleteAllByUserID(ctx context.Context, userID string) error
	// PruneUserTokens keeps the keep most-recent live tokens for the user
	// and deletes the rest.
	PruneUserTokens(ctx context.Context, userID string, keep int) error
	GetActiveByUserID(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// ActionTokenRepository stores single-use email-verification and
// password-reset tokens.
type ActionTokenRepository interface {
	CreateActionToken(ctx context.Context, at *ActionToken) error
	// RedeemPasswordReset spends a reset token, installs the new password
	// hash and revokes the user's refresh tokens in one transaction, so a
	// failure part-way never burns the token. Returns the owning user id,
	// or ("", nil) when the token is unknown, expired, or already spent.
	RedeemPasswordReset(ctx context.Context, token, newHash string) (string, error)
	// RedeemEmailVerification spends a verification token and marks the
	// account verified in the same transaction. Same ("", nil) contract.
	RedeemEmailVerification(ctx context.Context, token string) (string, error)
}

// Mailer is the outbound-notification collaborator. Delivery failures are
// the caller's to log; they never fail an auth flow.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}
