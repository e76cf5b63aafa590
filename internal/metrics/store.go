package metrics

import (
	"context"
	"time"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

type instrumentedStore struct {
	next storage.EventStore
}

// InstrumentStore wraps s so every operation is timed.
func InstrumentStore(s storage.EventStore) storage.EventStore {
	return &instrumentedStore{next: s}
}

func (s *instrumentedStore) ListEvents(ctx context.Context, accountID string, start, end *time.Time) (evs []*storage.CalendarEvent, err error) {
	defer func(t time.Time) { ObserveStore(ctx, "list", t, err) }(time.Now())
	return s.next.ListEvents(ctx, accountID, start, end)
}

func (s *instrumentedStore) GetEvent(ctx context.Context, accountID, eventID string) (ev *storage.CalendarEvent, err error) {
	defer func(t time.Time) { ObserveStore(ctx, "get", t, err) }(time.Now())
	return s.next.GetEvent(ctx, accountID, eventID)
}

func (s *instrumentedStore) UpsertEvent(ctx context.Context, accountID string, ev *storage.CalendarEvent) (err error) {
	defer func(t time.Time) { ObserveStore(ctx, "upsert", t, err) }(time.Now())
	return s.next.UpsertEvent(ctx, accountID, ev)
}

func (s *instrumentedStore) DeleteEvent(ctx context.Context, accountID, eventID string) (err error) {
	defer func(t time.Time) { ObserveStore(ctx, "delete", t, err) }(time.Now())
	return s.next.DeleteEvent(ctx, accountID, eventID)
}

func (s *instrumentedStore) Ping(ctx context.Context) (err error) {
	defer func(t time.Time) { ObserveStore(ctx, "ping", t, err) }(time.Now())
	return s.next.Ping(ctx)
}

func (s *instrumentedStore) Close() { s.next.Close() }
