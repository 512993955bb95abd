package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
)

const saveTimeout = 10 * time.Second

// saver debounces and serializes writes of the session snapshot. A burst of
// schedule calls within the delay window collapses into one trailing flush,
// flushes never overlap, and failures are logged and swallowed: persistence
// is best-effort and must not block or fail a foreground operation.
type saver struct {
	store     *Store
	persister Persister
	debounced func(func())
	flushMu   sync.Mutex
	disabled  atomic.Bool
	logger    *slog.Logger
}

func newSaver(store *Store, persister Persister, delay time.Duration, logger *slog.Logger) *saver {
	return &saver{
		store:     store,
		persister: persister,
		debounced: debounce.New(delay),
		logger:    logger,
	}
}

// schedule arms (or re-arms) the trailing flush. No-op while state
// restoration is running or when no persister is configured.
func (s *saver) schedule() {
	if s.persister == nil || s.disabled.Load() {
		return
	}
	s.debounced(s.flush)
}

// suppress toggles save suppression during state restoration.
func (s *saver) suppress(on bool) {
	s.disabled.Store(on)
}

func (s *saver) flush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	snap := s.store.snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.persister.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Error("save session state", "error", err)
	}
}

func (s *saver) load(ctx context.Context) (*Snapshot, error) {
	if s.persister == nil {
		return nil, nil
	}
	return s.persister.LoadSnapshot(ctx)
}

// FlushNow writes the current snapshot immediately, bypassing the debounce
// window. Used at shutdown.
func (s *Store) FlushNow() {
	if s.saver.persister == nil {
		return
	}
	s.saver.flush()
}
