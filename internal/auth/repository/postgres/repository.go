package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
	autherror "github.com/joshuatxtcllc/framekraft-sub002/internal/errors"
)

// PgxIface is the slice of pgxpool.Pool the repository uses, narrow enough
// for pgxmock to stand in during tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresRepository struct {
	db PgxIface
}

func NewPostgresRepository(db PgxIface) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uniqueViolationCode = "23505"

const userColumns = `id, email, password_hash, first_name, last_name, business_name, role,
		is_active, is_email_verified, login_attempts, lock_until, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.BusinessName, &user.Role, &user.IsActive, &user.IsEmailVerified,
		&user.LoginAttempts, &user.LockUntil, &user.LastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, first_name, last_name, business_name, role,
            is_active, is_email_verified, login_attempts, created_at, updated_at)
        VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)
    `, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.BusinessName, user.Role, user.IsActive, user.IsEmailVerified,
		user.CreatedAt, user.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return autherror.ErrEmailAlreadyInUse
	}

	return err
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = lower($1)
		LIMIT 1;
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
		LIMIT 1;
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, fields domain.UserUpdate) (*domain.User, error) {
	var role *string
	if fields.Role != nil {
		s := string(*fields.Role)
		role = &s
	}

	query := `
		UPDATE users SET
			first_name    = COALESCE($2, first_name),
			last_name     = COALESCE($3, last_name),
			business_name = COALESCE($4, business_name),
			role          = COALESCE($5, role),
			is_active     = COALESCE($6, is_active),
			updated_at    = now()
		WHERE id = $1
		RETURNING ` + userColumns + `;
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, id,
		fields.FirstName, fields.LastName, fields.BusinessName, role, fields.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	return err
}

// IncrementLoginAttempts is a single atomic UPDATE so concurrent failures
// neither lose counts nor double-lock. A lock window that already elapsed
// resets the counter to 1; hitting maxAttempts arms a fresh lock.
func (r *PostgresRepository) IncrementLoginAttempts(ctx context.Context, id string, maxAttempts int, lockFor time.Duration) (*domain.LockState, error) {
	query := `
		UPDATE users SET
			login_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= now() THEN 1
				ELSE login_attempts + 1
			END,
			lock_until = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= now() THEN NULL
				WHEN login_attempts + 1 >= $2 THEN now() + ($3 * interval '1 minute')
				ELSE lock_until
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING login_attempts, lock_until;
	`
	var state domain.LockState
	err := r.db.QueryRow(ctx, query, id, maxAttempts, int(lockFor.Minutes())).
		Scan(&state.Attempts, &state.LockUntil)
	if err != nil {
		return nil, fmt.Errorf("failed to increment login attempts: %w", err)
	}

	return &state, nil
}

func (r *PostgresRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET login_attempts = 0, lock_until = NULL, last_login = now(), updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, attempt_time, successful)
		VALUES (gen_random_uuid(), lower($1), $2, now(), $3)
	`, email, ip, success)
	return err
}

func (r *PostgresRepository) CountRecentFailedAttempts(ctx context.Context, email, ip string, windowMinutes int) (int, error) {
	query := `
		SELECT COUNT(id) FROM login_attempts
		WHERE email = lower($1) AND ip_address = $2 AND successful = FALSE
		  AND attempt_time > now() - ($3 * interval '1 minute')
	`
	var count int
	if err := r.db.QueryRow(ctx, query, email, ip, windowMinutes).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}
