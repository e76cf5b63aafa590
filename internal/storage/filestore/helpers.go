package filestore

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

func accountsDir(root string) string {
	return filepath.Join(root, "accounts")
}

// ids are escaped so they can never leave their directory
func (s *Store) appointmentsDir(accountID string) string {
	return filepath.Join(accountsDir(s.root), url.PathEscape(accountID), "appointments")
}

func (s *Store) rowPath(accountID, id string) string {
	return filepath.Join(s.appointmentsDir(accountID), url.PathEscape(id)+".json")
}

type rowFile struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Title           string    `json:"title"`
	Notes           string    `json:"notes,omitempty"`
	Location        string    `json:"location,omitempty"`
	Organizer       string    `json:"organizer,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newRowFile(a storage.Appointment) rowFile {
	return rowFile{
		ID:              a.ID,
		Date:            a.Date,
		Time:            a.Time,
		DurationMinutes: a.DurationMinutes,
		Title:           a.Title,
		Notes:           a.Notes,
		Location:        a.Location,
		Organizer:       a.Organizer,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (f rowFile) appointment(accountID string) storage.Appointment {
	return storage.Appointment{
		ID:              f.ID,
		AccountID:       accountID,
		Date:            f.Date,
		Time:            f.Time,
		DurationMinutes: f.DurationMinutes,
		Title:           f.Title,
		Notes:           f.Notes,
		Location:        f.Location,
		Organizer:       f.Organizer,
		Status:          f.Status,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

func readJSON[T any](path string, out *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// writeJSON replaces path atomically.
func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
