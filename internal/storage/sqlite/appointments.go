package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

const selectAppointment = `
	SELECT id, account_id, appointment_date, appointment_time, duration_minutes,
		title, notes, location, organizer, status, created_at, updated_at
	FROM appointments`

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(sc scanner) (storage.Appointment, error) {
	var a storage.Appointment
	var created, updated int64
	err := sc.Scan(&a.ID, &a.AccountID, &a.Date, &a.Time, &a.DurationMinutes,
		&a.Title, &a.Notes, &a.Location, &a.Organizer, &a.Status, &created, &updated)
	if err != nil {
		return a, err
	}
	a.CreatedAt = time.UnixMicro(created).UTC()
	a.UpdatedAt = time.UnixMicro(updated).UTC()
	return a, nil
}

func (s *Store) ListEvents(ctx context.Context, accountID string, start, end *time.Time) ([]*storage.CalendarEvent, error) {
	q := selectAppointment + ` WHERE account_id = ?`
	args := []any{accountID}
	if start != nil {
		q += ` AND (appointment_date || ' ' || appointment_time) >= ?`
		args = append(args, s.opts.LowerBound(*start))
	}
	if end != nil {
		q += ` AND (appointment_date || ' ' || appointment_time) <= ?`
		args = append(args, s.opts.UpperBound(*end))
	}
	q += ` ORDER BY appointment_date, appointment_time, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
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
	row := s.db.QueryRowContext(ctx, selectAppointment+` WHERE account_id = ? AND id = ?`, accountID, eventID)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.opts.Event(a)
}

func (s *Store) UpsertEvent(ctx context.Context, accountID string, ev *storage.CalendarEvent) error {
	a := s.opts.AppointmentFromEvent(accountID, ev)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO appointments (
				account_id, id, appointment_date, appointment_time, duration_minutes,
				title, notes, location, organizer, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(account_id, id) DO UPDATE SET
				appointment_date = excluded.appointment_date,
				appointment_time = excluded.appointment_time,
				duration_minutes = excluded.duration_minutes,
				title = excluded.title,
				notes = excluded.notes,
				location = excluded.location,
				organizer = excluded.organizer,
				status = excluded.status,
				updated_at = excluded.updated_at
		`, a.AccountID, a.ID, a.Date, a.Time, a.DurationMinutes,
			a.Title, a.Notes, a.Location, a.Organizer, a.Status,
			a.CreatedAt.UnixMicro(), a.UpdatedAt.UnixMicro())
		return err
	})
}

func (s *Store) DeleteEvent(ctx context.Context, accountID, eventID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM appointments WHERE account_id = ? AND id = ?`, accountID, eventID)
	return err
}
