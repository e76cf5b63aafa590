package memory

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.EventStore {
		return New(storage.Options{UIDDomain: "test"}, zerolog.Nop())
	})
}
