package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amu-events/server/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const userColumns = `id, email, password_hash, name, role, email_verified,
       verification_token, verification_expires, is_blocked, created_at`

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (id, email, password_hash, name, role, email_verified, verification_token, verification_expires)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
RETURNING `+userColumns,
		params.Email,
		params.PasswordHash,
		params.Name,
		params.Role,
		params.EmailVerified,
		params.VerificationToken,
		toTimestamptz(params.VerificationExpires),
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*users.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

func (r *UserRepository) getBy(ctx context.Context, query string, arg any) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, query, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// MarkVerified flips email_verified and clears the token and expiry in the
// same statement so they can never diverge.
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE users
   SET email_verified = true, verification_token = NULL, verification_expires = NULL
 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RotateVerificationToken(ctx context.Context, id, token string, expires time.Time) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE users SET verification_token = $2, verification_expires = $3 WHERE id = $1`,
		id, token, expires)
	if err != nil {
		return fmt.Errorf("rotate verification token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]users.AdminUser, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT u.id, u.email, u.name, u.role, u.email_verified, u.is_blocked, u.created_at,
       (SELECT count(*) FROM events e WHERE e.creator_id = u.id) AS events_created,
       (SELECT count(*) FROM registrations g WHERE g.user_id = u.id) AS registrations
  FROM users u
 ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var items []users.AdminUser
	for rows.Next() {
		var item users.AdminUser
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(
			&item.ID,
			&item.Email,
			&item.Name,
			&item.Role,
			&item.EmailVerified,
			&item.IsBlocked,
			&createdAt,
			&item.EventsCreated,
			&item.Registrations,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if createdAt.Valid {
			item.CreatedAt = createdAt.Time
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

// Delete cascades in one transaction: the user's registrations, the events
// they created (with those events' registrations), then the user row.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM registrations WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("delete user registrations: %w", err)
	}
	if _, err := tx.Exec(ctx, `
DELETE FROM registrations WHERE event_id IN (SELECT id FROM events WHERE creator_id = $1)`, id); err != nil {
		return fmt.Errorf("delete registrations on created events: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM events WHERE creator_id = $1`, id); err != nil {
		return fmt.Errorf("delete created events: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	tag, err := r.queryer().Exec(ctx, `UPDATE users SET is_blocked = $2 WHERE id = $1`, id, blocked)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetRole(ctx context.Context, id, role string) error {
	tag, err := r.queryer().Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

// AdminEmails lists every admin address, for event notifications.
func (r *UserRepository) AdminEmails(ctx context.Context) ([]string, error) {
	rows, err := r.queryer().Query(ctx, `SELECT email FROM users WHERE role = 'ADMIN'`)
	if err != nil {
		return nil, fmt.Errorf("list admin emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan admin email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin emails: %w", err)
	}
	return emails, nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var user users.User
	var createdAt, verificationExpires pgtype.Timestamptz
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.EmailVerified,
		&user.VerificationToken,
		&verificationExpires,
		&user.IsBlocked,
		&createdAt,
	); err != nil {
		return nil, err
	}
	if verificationExpires.Valid {
		value := verificationExpires.Time
		user.VerificationExpires = &value
	}
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}
	return &user, nil
}

func toTimestamptz(value *time.Time) pgtype.Timestamptz {
	if value == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *value, Valid: true}
}
