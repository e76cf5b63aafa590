// Package storagetest holds the behaviour every storage.EventStore must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

// Factory returns a fresh, empty store. Stores must map times in UTC and use
// the "test" UID domain.
type Factory func(t *testing.T) storage.EventStore

func event(id string, start time.Time, title string) *storage.CalendarEvent {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return &storage.CalendarEvent{
		ID:           id,
		UID:          storage.UIDFor(id, "test"),
		Summary:      title,
		Start:        start,
		End:          start.Add(30 * time.Minute),
		Status:       storage.StatusConfirmed,
		Created:      now,
		LastModified: now,
	}
}

func Run(t *testing.T, newStore Factory) {
	t.Run("UpsertThenGet", func(t *testing.T) { testUpsertThenGet(t, newStore(t)) })
	t.Run("UpdateKeepsCreated", func(t *testing.T) { testUpdateKeepsCreated(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("DeleteIsIdempotent", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("ListRange", func(t *testing.T) { testListRange(t, newStore(t)) })
	t.Run("AccountsAreIsolated", func(t *testing.T) { testAccounts(t, newStore(t)) })
}

func testUpsertThenGet(t *testing.T, s storage.EventStore) {
	ctx := context.Background()
	start := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	ev := event("7", start, "Cleaning")
	ev.Description = "notes; with, punctuation"
	ev.Location = "Room 1"
	ev.Organizer = "mailto:front@clinic.test"
	ev.Status = storage.StatusTentative
	ev.LastModified = time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)
	require.NoError(t, s.UpsertEvent(ctx, "acct1", ev))

	got, err := s.GetEvent(ctx, "acct1", "7")
	require.NoError(t, err)
	assert.Equal(t, "7", got.ID)
	assert.Equal(t, "appointment-7@test", got.UID)
	assert.Equal(t, "Cleaning", got.Summary)
	assert.Equal(t, ev.Description, got.Description)
	assert.Equal(t, "Room 1", got.Location)
	assert.Equal(t, ev.Organizer, got.Organizer)
	assert.Equal(t, storage.StatusTentative, got.Status)
	assert.True(t, got.Start.Equal(start), "start %s", got.Start)
	assert.True(t, got.End.Equal(start.Add(30*time.Minute)), "end %s", got.End)
	assert.Equal(t, ev.ETag(), got.ETag())
}

func testUpdateKeepsCreated(t *testing.T, s storage.EventStore) {
	ctx := context.Background()
	ev := event("1", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), "First")
	require.NoError(t, s.UpsertEvent(ctx, "acct1", ev))

	upd := event("1", time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC), "Second")
	upd.Created = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	upd.LastModified = ev.LastModified.Add(time.Minute)
	require.NoError(t, s.UpsertEvent(ctx, "acct1", upd))

	got, err := s.GetEvent(ctx, "acct1", "1")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Summary)
	assert.True(t, got.Created.Equal(ev.Created), "created %s", got.Created)
	assert.True(t, got.LastModified.Equal(upd.LastModified))

	all, err := s.ListEvents(ctx, "acct1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testGetMissing(t *testing.T, s storage.EventStore) {
	_, err := s.GetEvent(context.Background(), "acct1", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDelete(t *testing.T, s storage.EventStore) {
	ctx := context.Background()
	require.NoError(t, s.UpsertEvent(ctx, "acct1", event("9", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), "x")))
	require.NoError(t, s.DeleteEvent(ctx, "acct1", "9"))
	require.NoError(t, s.DeleteEvent(ctx, "acct1", "9"))

	_, err := s.GetEvent(ctx, "acct1", "9")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListRange(t *testing.T, s storage.EventStore) {
	ctx := context.Background()
	for id, day := range map[string]int{"a": 10, "b": 15, "c": 20} {
		require.NoError(t, s.UpsertEvent(ctx, "acct1", event(id, time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC), id)))
	}

	lo := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	got, err := s.ListEvents(ctx, "acct1", &lo, &hi)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	got, err = s.ListEvents(ctx, "acct1", &lo, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	got, err = s.ListEvents(ctx, "acct1", nil, &hi)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)

	// bounds are inclusive
	exact := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	got, err = s.ListEvents(ctx, "acct1", &exact, &exact)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	// fractional bounds: a start just after 09:00 excludes b, an end just after keeps it
	late := exact.Add(500 * time.Millisecond)
	got, err = s.ListEvents(ctx, "acct1", &late, &hi)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ListEvents(ctx, "acct1", &lo, &late)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func testAccounts(t *testing.T, s storage.EventStore) {
	ctx := context.Background()
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertEvent(ctx, "acct1", event("1", start, "one")))
	require.NoError(t, s.UpsertEvent(ctx, "acct2", event("1", start, "two")))

	got, err := s.GetEvent(ctx, "acct2", "1")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Summary)

	list, err := s.ListEvents(ctx, "acct1", nil, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "one", list[0].Summary)

	require.NoError(t, s.DeleteEvent(ctx, "acct1", "1"))
	_, err = s.GetEvent(ctx, "acct2", "1")
	assert.NoError(t, err)
}
