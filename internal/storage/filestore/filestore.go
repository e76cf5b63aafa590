// Package filestore keeps one JSON file per appointment below a root
// directory: {root}/accounts/{account}/appointments/{id}.json.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

type Store struct {
	root   string
	opts   storage.Options
	logger zerolog.Logger

	mu    sync.Mutex // protects locks
	locks map[string]*sync.RWMutex
}

// New creates or opens a filesystem store rooted at rootDir.
func New(rootDir string, opts storage.Options, logger zerolog.Logger) (*Store, error) {
	if rootDir == "" {
		return nil, errors.New("rootDir required")
	}
	if err := os.MkdirAll(accountsDir(rootDir), 0o755); err != nil {
		return nil, err
	}
	return &Store{
		root:   rootDir,
		opts:   opts,
		logger: logger,
		locks:  make(map[string]*sync.RWMutex),
	}, nil
}

func (s *Store) Close() {}

func (s *Store) Ping(context.Context) error {
	_, err := os.Stat(accountsDir(s.root))
	return err
}

// accountLock serialises writers per account; readers share.
func (s *Store) accountLock(accountID string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[accountID] = l
	}
	return l
}

func (s *Store) ListEvents(_ context.Context, accountID string, start, end *time.Time) ([]*storage.CalendarEvent, error) {
	var lo, hi string
	if start != nil {
		lo = s.opts.LowerBound(*start)
	}
	if end != nil {
		hi = s.opts.UpperBound(*end)
	}

	l := s.accountLock(accountID)
	l.RLock()
	defer l.RUnlock()

	dir := s.appointmentsDir(accountID)
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []*storage.CalendarEvent
	for _, ent := range ents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		var rf rowFile
		if err := readJSON(dir+string(os.PathSeparator)+ent.Name(), &rf); err != nil {
			s.logger.Warn().Err(err).Str("account", accountID).Str("file", ent.Name()).Msg("skipping unreadable appointment file")
			continue
		}
		row := rf.appointment(accountID)
		local := row.Date + " " + row.Time
		if (lo != "" && local < lo) || (hi != "" && local > hi) {
			continue
		}
		ev, err := s.opts.Event(row)
		if err != nil {
			s.logger.Warn().Err(err).Str("account", accountID).Msg("skipping unreadable appointment")
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetEvent(_ context.Context, accountID, eventID string) (*storage.CalendarEvent, error) {
	l := s.accountLock(accountID)
	l.RLock()
	defer l.RUnlock()

	var rf rowFile
	if err := readJSON(s.rowPath(accountID, eventID), &rf); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return s.opts.Event(rf.appointment(accountID))
}

func (s *Store) UpsertEvent(_ context.Context, accountID string, ev *storage.CalendarEvent) error {
	if accountID == "" || ev.ID == "" {
		return errors.New("account and appointment id required")
	}
	row := s.opts.AppointmentFromEvent(accountID, ev)

	l := s.accountLock(accountID)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(s.appointmentsDir(accountID), 0o755); err != nil {
		return err
	}
	path := s.rowPath(accountID, ev.ID)

	// created_at belongs to the first write
	var prev rowFile
	if err := readJSON(path, &prev); err == nil && !prev.CreatedAt.IsZero() {
		row.CreatedAt = prev.CreatedAt
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read appointment %s: %w", ev.ID, err)
	}
	return writeJSON(path, newRowFile(row))
}

func (s *Store) DeleteEvent(_ context.Context, accountID, eventID string) error {
	l := s.accountLock(accountID)
	l.Lock()
	defer l.Unlock()

	err := os.Remove(s.rowPath(accountID, eventID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
