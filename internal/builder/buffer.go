package builder

import (
	"sync"
	"time"
)

// DefaultCommitDebounce is how long typing must pause before a buffer
// commits on its own, without waiting for blur.
const DefaultCommitDebounce = 400 * time.Millisecond

// EditBuffer decouples keystroke-level input from document mutation for one
// locally edited field (title, option text, rich-text content). The visible
// input always reflects the literal keystrokes; the canonical collection is
// updated at most once per pause-in-typing or on blur, never per keystroke.
// Committing through the buffer avoids the re-render/remount that would lose
// cursor position if every keystroke hit the authoritative list.
type EditBuffer struct {
	mu sync.Mutex

	draft     string
	canonical string
	debounce  time.Duration
	timer     *time.Timer
	disposed  bool

	// commit pushes the draft into the canonical collection, typically a
	// closure over Collection.Update for one question id and field.
	commit func(value string)
}

// NewEditBuffer creates a buffer initialized from the canonical value.
// debounce <= 0 selects DefaultCommitDebounce.
func NewEditBuffer(canonical string, debounce time.Duration, commit func(value string)) *EditBuffer {
	if debounce <= 0 {
		debounce = DefaultCommitDebounce
	}
	return &EditBuffer{
		draft:     canonical,
		canonical: canonical,
		debounce:  debounce,
		commit:    commit,
	}
}

// Input records one keystroke's resulting value and re-arms the debounce
// timer. The canonical value is untouched until the timer fires or Blur.
func (b *EditBuffer) Input(value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.draft = value
	if b.timer == nil {
		b.timer = time.AfterFunc(b.debounce, b.onTimer)
		return
	}
	b.timer.Reset(b.debounce)
}

// Blur commits synchronously if the draft differs from the last known
// canonical value, and cancels any armed timer.
func (b *EditBuffer) Blur() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.cancelTimerLocked()
	commit, value := b.takeDirtyLocked()
	b.mu.Unlock()
	if commit != nil {
		commit(value)
	}
}

// Sync resynchronizes the buffer to a canonical value that changed for a
// reason other than this buffer's own commits (external patch, duplication,
// undo). The draft is replaced and any pending commit dropped. The echo of
// this buffer's own last commit matches the recorded canonical value and is
// ignored, so typing that continued past a debounce commit is not clobbered.
func (b *EditBuffer) Sync(canonical string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed || canonical == b.canonical {
		return
	}
	b.cancelTimerLocked()
	b.draft = canonical
	b.canonical = canonical
}

// Draft returns what the input is currently showing.
func (b *EditBuffer) Draft() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft
}

// Dispose cancels the timer and blocks all further commits, so an unmounted
// editor can never write to a disposed question.
func (b *EditBuffer) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.cancelTimerLocked()
}

func (b *EditBuffer) onTimer() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	commit, value := b.takeDirtyLocked()
	b.mu.Unlock()
	if commit != nil {
		commit(value)
	}
}

// takeDirtyLocked returns the commit function and value when the draft
// differs from canonical, marking the draft as committed. Callers invoke the
// commit outside the lock.
func (b *EditBuffer) takeDirtyLocked() (func(string), string) {
	if b.draft == b.canonical || b.commit == nil {
		return nil, ""
	}
	b.canonical = b.draft
	return b.commit, b.draft
}

func (b *EditBuffer) cancelTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
