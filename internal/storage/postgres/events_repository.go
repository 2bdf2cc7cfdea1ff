package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/amu-events/server/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const eventSelect = `
SELECT e.id, e.title, e.description, e.date, e.location, e.max_spots,
       e.creator_id, e.created_at,
       u.id, u.name, u.email,
       e.max_spots - (SELECT count(*) FROM registrations g WHERE g.event_id = e.id) AS remaining_spots
  FROM events e
  JOIN users u ON u.id = e.creator_id`

func (r *EventRepository) List(ctx context.Context) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, eventSelect+` ORDER BY e.date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var items []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

// Get returns the event with its creator, remaining capacity and the full
// attendee list.
func (r *EventRepository) Get(ctx context.Context, id string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, eventSelect+` WHERE e.id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	rows, err := r.queryer().Query(ctx, `
SELECT g.id, g.registered_at, u.id, u.name, u.email
  FROM registrations g
  JOIN users u ON u.id = g.user_id
 WHERE g.event_id = $1
 ORDER BY g.registered_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var attendee events.Attendee
		var registeredAt pgtype.Timestamptz
		if err := rows.Scan(
			&attendee.ID,
			&registeredAt,
			&attendee.User.ID,
			&attendee.User.Name,
			&attendee.User.Email,
		); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		if registeredAt.Valid {
			attendee.RegisteredAt = registeredAt.Time
		}
		event.Registrations = append(event.Registrations, attendee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendees: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	var id string
	err := r.queryer().QueryRow(ctx, `
INSERT INTO events (id, title, description, date, location, max_spots, creator_id)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
RETURNING id`,
		params.Title,
		params.Description,
		params.Date,
		params.Location,
		params.MaxSpots,
		params.CreatorID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *EventRepository) Update(ctx context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE events
   SET title = $2, description = $3, date = $4, location = $5, max_spots = $6
 WHERE id = $1`,
		id,
		params.Title,
		params.Description,
		params.Date,
		params.Location,
		params.MaxSpots,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, events.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes the event's registrations and the event in one transaction
// so a failure can never orphan registrations.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM registrations WHERE event_id = $1`, id); err != nil {
		return fmt.Errorf("delete event registrations: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *EventRepository) RegistrantEmails(ctx context.Context, id string) ([]string, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT u.email
  FROM registrations g
  JOIN users u ON u.id = g.user_id
 WHERE g.event_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list registrant emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan registrant email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrant emails: %w", err)
	}
	return emails, nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var event events.Event
	var date, createdAt pgtype.Timestamptz
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&date,
		&event.Location,
		&event.MaxSpots,
		&event.CreatorID,
		&createdAt,
		&event.Creator.ID,
		&event.Creator.Name,
		&event.Creator.Email,
		&event.RemainingSpots,
	); err != nil {
		return nil, err
	}
	if date.Valid {
		event.Date = date.Time
	}
	if createdAt.Valid {
		event.CreatedAt = createdAt.Time
	}
	return &event, nil
}
