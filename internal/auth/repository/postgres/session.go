package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
)

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (id, user_id, token, device_fingerprint, ip_address, user_agent, expires_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		rt.ID, rt.UserID, rt.Token, rt.DeviceFingerprint, rt.IPAddress,
		rt.UserAgent, rt.ExpiresAt, rt.CreatedAt)
	return err
}

// GetRefreshToken filters expired rows on read; a record past expires_at is
// treated exactly like a missing one even before the purge job removes it.
func (r *PostgresRepository) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, device_fingerprint, ip_address, user_agent, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1 AND expires_at > now()
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, token)

	var rt domain.RefreshToken
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.DeviceFingerprint,
		&rt.IPAddress, &rt.UserAgent, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &rt, nil
}

// DeleteRefreshToken reports whether this call removed the row. Rotation
// relies on that: when two requests race on the same token, the single
// successful DELETE decides the winner.
func (r *PostgresRepository) DeleteRefreshToken(ctx context.Context, token string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) DeleteAllByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

// PruneUserTokens keeps the keep most recently issued live tokens for the
// user and deletes everything older.
func (r *PostgresRepository) PruneUserTokens(ctx context.Context, userID string, keep int) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1 AND token NOT IN (
			SELECT token FROM refresh_tokens
			WHERE user_id = $1 AND expires_at > now()
			ORDER BY created_at DESC
			LIMIT $2
		)
	`
	_, err := r.db.Exec(ctx, query, userID, keep)
	if err != nil {
		return fmt.Errorf("failed to prune refresh tokens: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetActiveByUserID(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, device_fingerprint, ip_address, user_agent, expires_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND expires_at > now()
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.RefreshToken
	for rows.Next() {
		var rt domain.RefreshToken
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.DeviceFingerprint,
			&rt.IPAddress, &rt.UserAgent, &rt.ExpiresAt, &rt.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, rt)
	}

	return tokens, rows.Err()
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
