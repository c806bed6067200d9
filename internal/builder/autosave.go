package builder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/formlab/builder-service/internal/models"
)

// DefaultAutosaveDebounce is how long the collection must stay quiet before
// a snapshot is written to the document store.
const DefaultAutosaveDebounce = 3 * time.Second

// SaveFunc writes one snapshot to the document store.
type SaveFunc func(ctx context.Context, questions []models.Question) error

// Autosaver debounces collection changes into document store writes. One
// write is in flight at a time; local editing is never blocked on a pending
// remote acknowledgment. A failed write is reported through onResult and the
// local state is left untouched. There is no automatic retry; the next
// local change re-arms the debounce and tries again.
type Autosaver struct {
	snapshot func() []models.Question
	save     SaveFunc
	debounce time.Duration
	logger   *slog.Logger

	// onResult observes the outcome of every save attempt (nil on success).
	// Used to surface failures to the user and to publish lifecycle events.
	onResult func(err error)

	mu       sync.Mutex
	timer    *time.Timer
	pending  bool
	running  bool
	disposed bool

	// saveMu serializes document store writes. The timer path and Flush both
	// hold it across run, so the store sees at most one write for this draft
	// at a time; a flush issued mid-write waits for the write to finish.
	saveMu sync.Mutex
}

// AutosaverOpts configures an Autosaver. Snapshot and Save are required.
type AutosaverOpts struct {
	Snapshot func() []models.Question
	Save     SaveFunc
	Debounce time.Duration
	Logger   *slog.Logger
	OnResult func(err error)
}

func NewAutosaver(opts AutosaverOpts) *Autosaver {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultAutosaveDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{
		snapshot: opts.Snapshot,
		save:     opts.Save,
		debounce: debounce,
		logger:   logger,
		onResult: opts.OnResult,
	}
}

// Notify records that the collection changed and re-arms the debounce timer.
func (a *Autosaver) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	a.pending = true
	if a.timer == nil {
		a.timer = time.AfterFunc(a.debounce, a.onTimer)
		return
	}
	a.timer.Reset(a.debounce)
}

// Flush saves immediately, bypassing the debounce. Any armed timer is
// cancelled first, and an in-flight timer write is waited out before the
// flush writes. Used by the force-save path and by session disposal.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return nil
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = false
	a.mu.Unlock()

	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	return a.run(ctx)
}

// Dispose cancels any pending write so a disposed builder never saves again.
func (a *Autosaver) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disposed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = false
}

func (a *Autosaver) onTimer() {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	if a.running {
		// A write is in flight; come back for the pending changes.
		if a.timer != nil {
			a.timer.Reset(a.debounce)
		}
		a.mu.Unlock()
		return
	}
	if !a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.running = true
	a.mu.Unlock()

	a.saveMu.Lock()
	err := a.run(context.Background())
	a.saveMu.Unlock()
	if err != nil {
		a.logger.Warn("autosave failed", "error", err)
	}

	a.mu.Lock()
	a.running = false
	if a.pending && a.timer != nil && !a.disposed {
		a.timer.Reset(a.debounce)
	}
	a.mu.Unlock()
}

func (a *Autosaver) run(ctx context.Context) error {
	err := a.save(ctx, a.snapshot())
	if a.onResult != nil {
		a.onResult(err)
	}
	return err
}
