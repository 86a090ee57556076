package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
	"github.com/joshuatxtcllc/framekraft-sub002/pkg/constant"
)

func (r *PostgresRepository) CreateActionToken(ctx context.Context, at *domain.ActionToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO action_tokens (token, user_id, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, at.Token, at.UserID, at.Purpose, at.ExpiresAt, at.CreatedAt)
	return err
}

// RedeemPasswordReset spends a reset token, installs the new password hash
// and revokes every refresh token the user holds, all in one transaction.
// If any step fails the token is not burned. Unknown, expired and
// already-spent tokens come back as ("", nil).
func (r *PostgresRepository) RedeemPasswordReset(ctx context.Context, token, newHash string) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	userID, err := consumeActionToken(ctx, tx, token, constant.PurposeResetPassword)
	if err != nil || userID == "" {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, userID, newHash); err != nil {
		return "", err
	}

	// Sessions obtained before the reset are treated as compromised.
	if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	return userID, nil
}

// RedeemEmailVerification spends a verification token and marks the owning
// account verified in the same transaction.
func (r *PostgresRepository) RedeemEmailVerification(ctx context.Context, token string) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	userID, err := consumeActionToken(ctx, tx, token, constant.PurposeVerifyEmail)
	if err != nil || userID == "" {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET is_email_verified = TRUE, updated_at = now() WHERE id = $1
	`, userID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	return userID, nil
}

// consumeActionToken deletes and returns in one statement, so a token is
// spendable exactly once no matter how many requests race on it. Unknown,
// expired, and already-consumed tokens all come back as ("", nil).
func consumeActionToken(ctx context.Context, tx pgx.Tx, token, purpose string) (string, error) {
	query := `
		DELETE FROM action_tokens
		WHERE token = $1 AND purpose = $2 AND expires_at > now()
		RETURNING user_id;
	`
	var userID string
	err := tx.QueryRow(ctx, query, token, purpose).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	return userID, nil
}

// DeleteExpiredActionTokens backs the periodic cleanup job.
func (r *PostgresRepository) DeleteExpiredActionTokens(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM action_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// DeleteStaleLoginAttempts trims the credential-failure log outside the
// counting window.
func (r *PostgresRepository) DeleteStaleLoginAttempts(ctx context.Context, windowMinutes int) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM login_attempts WHERE attempt_time <= now() - ($1 * interval '1 minute')
	`, windowMinutes)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
