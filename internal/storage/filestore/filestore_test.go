package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage/storagetest"
)

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.EventStore {
		s, err := New(t.TempDir(), storage.Options{UIDDomain: "test"}, zerolog.Nop())
		require.NoError(t, err)
		return s
	})
}

func TestIDsStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, storage.Options{}, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	ev := &storage.CalendarEvent{ID: "../../escape", Start: start, End: start.Add(time.Hour), LastModified: start}
	require.NoError(t, s.UpsertEvent(ctx, "acct", ev))

	_, err = os.Stat(filepath.Join(root, "escape.json"))
	assert.True(t, os.IsNotExist(err))

	got, err := s.GetEvent(ctx, "acct", "../../escape")
	require.NoError(t, err)
	assert.Equal(t, "../../escape", got.ID)
}

func TestSkipsCorruptFiles(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, storage.Options{}, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertEvent(ctx, "acct", &storage.CalendarEvent{ID: "1", Start: start, End: start.Add(time.Hour), LastModified: start}))
	require.NoError(t, os.WriteFile(filepath.Join(s.appointmentsDir("acct"), "bad.json"), []byte("{"), 0o644))

	evs, err := s.ListEvents(ctx, "acct", nil, nil)
	require.NoError(t, err)
	assert.Len(t, evs, 1)
	assert.NoError(t, s.Ping(ctx))
}
