package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

const selectAppointment = `
	SELECT id, account_id,
		to_char(appointment_date, 'YYYY-MM-DD'),
		to_char(appointment_time, 'HH24:MI:SS'),
		duration_minutes, title, notes, location, organizer, status,
		created_at, updated_at
	FROM appointments`

func scanAppointment(row pgx.Row) (storage.Appointment, error) {
	var a storage.Appointment
	err := row.Scan(&a.ID, &a.AccountID, &a.Date, &a.Time, &a.DurationMinutes,
		&a.Title, &a.Notes, &a.Location, &a.Organizer, &a.Status,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) ListEvents(ctx context.Context, accountID string, start, end *time.Time) ([]*storage.CalendarEvent, error) {
	q := selectAppointment + ` WHERE account_id = $1`
	args := []any{accountID}
	if start != nil {
		args = append(args, s.opts.LowerBound(*start))
		q += ` AND (appointment_date + appointment_time) >= $` + strconv.Itoa(len(args)) + `::timestamp`
	}
	if end != nil {
		args = append(args, s.opts.UpperBound(*end))
		q += ` AND (appointment_date + appointment_time) <= $` + strconv.Itoa(len(args)) + `::timestamp`
	}
	q += ` ORDER BY appointment_date, appointment_time, id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*storage.CalendarEvent
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		ev, err := s.opts.Event(a)
		if err != nil {
			s.logger.Warn().Err(err).Str("account", accountID).Msg("skipping unreadable appointment")
			continue
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) GetEvent(ctx context.Context, accountID, eventID string) (*storage.CalendarEvent, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx, selectAppointment+` WHERE account_id = $1 AND id = $2`, accountID, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.opts.Event(a)
}

func (s *Store) UpsertEvent(ctx context.Context, accountID string, ev *storage.CalendarEvent) error {
	a := s.opts.AppointmentFromEvent(accountID, ev)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO appointments (
			account_id, id, appointment_date, appointment_time, duration_minutes,
			title, notes, location, organizer, status, created_at, updated_at
		) VALUES ($1, $2, $3::date, $4::time, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (account_id, id) DO UPDATE SET
			appointment_date = EXCLUDED.appointment_date,
			appointment_time = EXCLUDED.appointment_time,
			duration_minutes = EXCLUDED.duration_minutes,
			title = EXCLUDED.title,
			notes = EXCLUDED.notes,
			location = EXCLUDED.location,
			organizer = EXCLUDED.organizer,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, a.AccountID, a.ID, a.Date, a.Time, a.DurationMinutes,
		a.Title, a.Notes, a.Location, a.Organizer, a.Status,
		a.CreatedAt, a.UpdatedAt)
	return err
}

func (s *Store) DeleteEvent(ctx context.Context, accountID, eventID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE account_id = $1 AND id = $2`, accountID, eventID)
	return err
}
