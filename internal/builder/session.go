package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/formlab/builder-service/internal/models"
)

// ErrUnknownField rejects editing-buffer requests for fields the buffer
// layer does not manage.
var ErrUnknownField = errors.New("unknown editable field")

// Session is one builder instance: the survey builder and the screening
// builder for the same project are two distinct sessions that never share a
// collection or timers. The session owns the collection exclusively; every
// mutation, whether from a handler goroutine, a buffer commit timer or the
// autosave snapshot, is serialized by the collection's lock.
type Session struct {
	ProjectID string
	Kind      models.BuilderKind

	collection *Collection
	reconciler *Reconciler
	logic      *LogicEngine
	autosaver  *Autosaver
	logger     *slog.Logger

	// commitDebounce is the window shared by every field buffer this
	// session creates.
	commitDebounce time.Duration

	mu       sync.Mutex
	buffers  map[string]*EditBuffer
	lastSave SaveStatus
	disposed bool
}

// SaveStatus is the most recent autosave outcome, surfaced to the client as
// a non-blocking warning when a write failed. Local state is never rolled
// back on failure.
type SaveStatus struct {
	Attempted bool      `json:"attempted"`
	SavedAt   time.Time `json:"savedAt,omitempty"`
	Failed    bool      `json:"failed"`
	Error     string    `json:"error,omitempty"`
}

// SessionOpts configures a session. Save is required; OnSaveResult is
// optional and observes every save attempt after the session's own
// bookkeeping (used to publish lifecycle events).
type SessionOpts struct {
	ProjectID        string
	Kind             models.BuilderKind
	Save             SaveFunc
	OnSaveResult     func(err error)
	AutosaveDebounce time.Duration
	CommitDebounce   time.Duration
	Logger           *slog.Logger
}

// NewSession wires a collection, reconciler, logic engine and autosaver into
// one owned-state object. Call Load before use and Dispose on teardown.
func NewSession(opts SessionOpts) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("project_id", opts.ProjectID, "builder_kind", string(opts.Kind))

	s := &Session{
		ProjectID: opts.ProjectID,
		Kind:      opts.Kind,
		logger:    logger,
		buffers:   map[string]*EditBuffer{},
	}
	s.collection = NewCollection(logger)
	s.reconciler = NewReconciler(s.collection, logger)
	s.logic = NewLogicEngine(s.collection, logger)
	s.autosaver = NewAutosaver(AutosaverOpts{
		Snapshot: s.collection.Snapshot,
		Save:     opts.Save,
		Debounce: opts.AutosaveDebounce,
		Logger:   logger,
		OnResult: func(err error) {
			s.recordSaveResult(err)
			if opts.OnSaveResult != nil {
				opts.OnSaveResult(err)
			}
		},
	})
	s.commitDebounce = opts.CommitDebounce
	s.collection.SetOnChange(s.autosaver.Notify)
	s.collection.SetOnQuestionChanged(s.resyncBuffers)
	return s
}

// resyncBuffers pushes a question's post-change field values into any live
// edit buffers bound to it, so an external patch or duplicate is not
// overwritten by a stale draft on the next blur or debounce commit. A
// buffer's own commit echoes back through here with an unchanged canonical
// value and is ignored by Sync.
func (s *Session) resyncBuffers(q models.Question) {
	prefix := q.ID + "\x00"

	type resync struct {
		buf   *EditBuffer
		value string
	}
	var touched []resync

	s.mu.Lock()
	for key, buf := range s.buffers {
		field, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		value, ok := canonicalFieldValue(q, field)
		if !ok {
			continue
		}
		touched = append(touched, resync{buf, value})
	}
	s.mu.Unlock()

	for _, r := range touched {
		r.buf.Sync(r.value)
	}
}

// canonicalFieldValue reads the buffer-managed field out of the question.
// A vanished option slot reports no value; its buffer keeps its draft and the
// commit path drops it as a missing-slot no-op.
func canonicalFieldValue(q models.Question, field string) (string, bool) {
	if field == "title" {
		return q.Title, true
	}
	if idx, ok := strings.CutPrefix(field, "option/"); ok {
		i, err := strconv.Atoi(idx)
		if err == nil && i >= 0 && i < len(q.Options) {
			return q.Options[i], true
		}
	}
	return "", false
}

func (s *Session) commitDebounceWindow() time.Duration {
	if s.commitDebounce > 0 {
		return s.commitDebounce
	}
	return DefaultCommitDebounce
}

// Load seeds the collection from a persisted snapshot without arming
// autosave.
func (s *Session) Load(questions []models.Question) {
	s.collection.Load(questions)
}

// Collection exposes the authoritative ordered list.
func (s *Session) Collection() *Collection {
	return s.collection
}

// Reconciler exposes the drag/drop state machine.
func (s *Session) Reconciler() *Reconciler {
	return s.reconciler
}

// Logic exposes the rule engine.
func (s *Session) Logic() *LogicEngine {
	return s.logic
}

// Save flushes the current snapshot immediately, bypassing the debounce.
func (s *Session) Save(ctx context.Context) error {
	return s.autosaver.Flush(ctx)
}

// LastSave returns the most recent save outcome.
func (s *Session) LastSave() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSave
}

func (s *Session) recordSaveResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSave.Attempted = true
	if err != nil {
		s.lastSave.Failed = true
		s.lastSave.Error = err.Error()
		return
	}
	s.lastSave.Failed = false
	s.lastSave.Error = ""
	s.lastSave.SavedAt = time.Now()
}

// FieldInput routes one keystroke's value into the question's field buffer,
// creating the buffer on first touch. Supported fields are "title" and
// "option/<index>". The canonical collection is not written until the
// buffer's debounce fires or FieldBlur is called.
func (s *Session) FieldInput(questionID, field, value string) error {
	buf, err := s.fieldBuffer(questionID, field)
	if err != nil {
		return err
	}
	buf.Input(value)
	return nil
}

// FieldBlur commits the field's buffer synchronously if dirty.
func (s *Session) FieldBlur(questionID, field string) error {
	buf, err := s.fieldBuffer(questionID, field)
	if err != nil {
		return err
	}
	buf.Blur()
	return nil
}

func (s *Session) fieldBuffer(questionID, field string) (*EditBuffer, error) {
	commit, initial, err := s.fieldBinding(questionID, field)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, errors.New("session disposed")
	}
	key := questionID + "\x00" + field
	if buf, ok := s.buffers[key]; ok {
		return buf, nil
	}
	buf := NewEditBuffer(initial, s.commitDebounceWindow(), commit)
	s.buffers[key] = buf
	return buf, nil
}

// fieldBinding resolves a field name into its current canonical value and a
// commit closure over Collection.Update.
func (s *Session) fieldBinding(questionID, field string) (func(string), string, error) {
	q, ok := s.collection.Get(questionID)
	if !ok {
		// Committing to a vanished question is the collection's logged
		// no-op, so a buffer against it is harmless.
		q = models.Question{ID: questionID}
	}

	if field == "title" {
		commit := func(value string) {
			s.collection.Update(questionID, models.QuestionPatch{Title: &value})
		}
		return commit, q.Title, nil
	}

	if idx, ok := strings.CutPrefix(field, "option/"); ok {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 {
			return nil, "", fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		initial := ""
		if i < len(q.Options) {
			initial = q.Options[i]
		}
		commit := func(value string) {
			_ = s.collection.Mutate(questionID, func(q *models.Question) error {
				if i >= len(q.Options) {
					s.logger.Debug("option commit on missing slot ignored",
						"question_id", questionID, "option_index", i)
					return nil
				}
				q.Options[i] = value
				return nil
			})
		}
		return commit, initial, nil
	}

	return nil, "", fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Dispose cancels every pending buffer and autosave timer. In-memory state
// stays readable but no further writes can fire.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	buffers := s.buffers
	s.buffers = map[string]*EditBuffer{}
	s.mu.Unlock()

	for _, buf := range buffers {
		buf.Dispose()
	}
	s.autosaver.Dispose()
}
