package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/amu-events/server/internal/domain/registrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ registrations.Repository = (*RegistrationRepository)(nil)

type RegistrationRepository struct {
	pool *pgxpool.Pool
}

func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// Register books a spot atomically. The SELECT ... FOR UPDATE on the event
// row serialises concurrent attempts per event: whoever holds the lock sees
// the committed registration count, so the capacity check and insert behave
// as one step and the count can never exceed max_spots.
func (r *RegistrationRepository) Register(ctx context.Context, eventID, userID string) (*registrations.Registration, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var maxSpots int
	err = tx.QueryRow(ctx, `SELECT max_spots FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&maxSpots)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registrations.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	if count >= maxSpots {
		return nil, registrations.ErrEventFull
	}

	var exists bool
	err = tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}
	if exists {
		return nil, registrations.ErrAlreadyRegistered
	}

	registration := &registrations.Registration{EventID: eventID, UserID: userID}
	var registeredAt pgtype.Timestamptz
	err = tx.QueryRow(ctx, `
INSERT INTO registrations (id, event_id, user_id)
VALUES (gen_random_uuid(), $1, $2)
RETURNING id, registered_at`, eventID, userID).Scan(&registration.ID, &registeredAt)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	if registeredAt.Valid {
		registration.RegisteredAt = registeredAt.Time
	}

	err = tx.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, userID).
		Scan(&registration.User.ID, &registration.User.Name, &registration.User.Email)
	if err != nil {
		return nil, fmt.Errorf("load user projection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return registration, nil
}

// Unregister deletes the caller's registration. Deleting twice fails with
// ErrRegistrationNotFound, it does not silently succeed.
func (r *RegistrationRepository) Unregister(ctx context.Context, eventID, userID string) error {
	tag, err := r.pool.Exec(ctx, `
DELETE FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registrations.ErrRegistrationNotFound
	}
	return nil
}

func (r *RegistrationRepository) ListAll(ctx context.Context) ([]registrations.AdminRegistration, error) {
	rows, err := r.pool.Query(ctx, `
SELECT g.id, g.registered_at,
       u.id, u.name, u.email,
       e.id, e.title, e.date, e.location
  FROM registrations g
  JOIN users u ON u.id = g.user_id
  JOIN events e ON e.id = g.event_id
 ORDER BY g.registered_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var items []registrations.AdminRegistration
	for rows.Next() {
		var item registrations.AdminRegistration
		var registeredAt, eventDate pgtype.Timestamptz
		if err := rows.Scan(
			&item.ID,
			&registeredAt,
			&item.User.ID,
			&item.User.Name,
			&item.User.Email,
			&item.Event.ID,
			&item.Event.Title,
			&eventDate,
			&item.Event.Location,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if registeredAt.Valid {
			item.RegisteredAt = registeredAt.Time
		}
		if eventDate.Valid {
			item.Event.Date = eventDate.Time
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return items, nil
}

func (r *RegistrationRepository) EventInfo(ctx context.Context, eventID string) (registrations.EventInfo, error) {
	var info registrations.EventInfo
	err := r.pool.QueryRow(ctx, `
SELECT e.id, e.title, u.name, u.email
  FROM events e
  JOIN users u ON u.id = e.creator_id
 WHERE e.id = $1`, eventID).
		Scan(&info.ID, &info.Title, &info.OrganizerName, &info.OrganizerEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registrations.EventInfo{}, registrations.ErrEventNotFound
		}
		return registrations.EventInfo{}, fmt.Errorf("get event info: %w", err)
	}
	return info, nil
}
