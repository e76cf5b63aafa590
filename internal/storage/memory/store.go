// Package memory keeps appointments in process memory. It backs tests and
// STORAGE_TYPE=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	rows   map[string]storage.Appointment // key: accountID/appointmentID
	opts   storage.Options
	logger zerolog.Logger
}

func New(opts storage.Options, logger zerolog.Logger) *Store {
	return &Store{
		rows:   make(map[string]storage.Appointment),
		opts:   opts,
		logger: logger,
	}
}

func rowKey(accountID, id string) string {
	return accountID + "/" + id
}

func (s *Store) ListEvents(_ context.Context, accountID string, start, end *time.Time) ([]*storage.CalendarEvent, error) {
	var lo, hi string
	if start != nil {
		lo = s.opts.LowerBound(*start)
	}
	if end != nil {
		hi = s.opts.UpperBound(*end)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.CalendarEvent
	for _, row := range s.rows {
		if row.AccountID != accountID {
			continue
		}
		local := row.Date + " " + row.Time
		if lo != "" && local < lo {
			continue
		}
		if hi != "" && local > hi {
			continue
		}
		ev, err := s.opts.Event(row)
		if err != nil {
			s.logger.Warn().Err(err).Str("account", accountID).Msg("skipping unreadable appointment")
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (s *Store) GetEvent(_ context.Context, accountID, eventID string) (*storage.CalendarEvent, error) {
	s.mu.RLock()
	row, ok := s.rows[rowKey(accountID, eventID)]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.opts.Event(row)
}

func (s *Store) UpsertEvent(_ context.Context, accountID string, ev *storage.CalendarEvent) error {
	row := s.opts.AppointmentFromEvent(accountID, ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.rows[rowKey(accountID, ev.ID)]; ok && !prev.CreatedAt.IsZero() {
		row.CreatedAt = prev.CreatedAt
	}
	s.rows[rowKey(accountID, ev.ID)] = row
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, accountID, eventID string) error {
	s.mu.Lock()
	delete(s.rows, rowKey(accountID, eventID))
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}
