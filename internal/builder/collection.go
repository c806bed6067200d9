package builder

import (
	"log/slog"
	"sync"

	"github.com/formlab/builder-service/internal/models"
)

// Collection is the single authoritative ordered question sequence for one
// builder instance. Its slice order is the only source of truth for question
// numbering and insertion-point semantics; there is no separate sort key.
//
// A single mutex serializes every operation: handler goroutines, buffer
// commit timers and the autosave snapshot all funnel through it, so the
// collection is the session's one serialization point. The only "failure"
// mode is a not-found no-op, which is logged and never surfaced: deletion
// races (delete then a late blur commit) are benign, not corruption.
type Collection struct {
	mu        sync.Mutex
	questions []models.Question
	logger    *slog.Logger

	// onChange fires after every state-changing operation that actually
	// changed something. The autosave coordinator hangs off this. Observers
	// run under the collection lock and must not call back into it.
	onChange func()

	// onQuestionChanged fires with the post-update state of a question whose
	// fields changed in place. The session resyncs live edit buffers off it.
	onQuestionChanged func(q models.Question)
}

func NewCollection(logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection{questions: []models.Question{}, logger: logger}
}

// SetOnChange registers the single change observer. Passing nil clears it.
func (c *Collection) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetOnQuestionChanged registers the per-question change observer. Passing
// nil clears it.
func (c *Collection) SetOnQuestionChanged(fn func(q models.Question)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onQuestionChanged = fn
}

// Load replaces the whole sequence from a persisted snapshot without firing
// the change observer.
func (c *Collection) Load(questions []models.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions = make([]models.Question, 0, len(questions))
	for _, q := range questions {
		c.questions = append(c.questions, q.Clone())
	}
}

// Len returns the number of questions.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.questions)
}

// Snapshot returns a deep copy of the current sequence.
func (c *Collection) Snapshot() []models.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Question, 0, len(c.questions))
	for _, q := range c.questions {
		out = append(out, q.Clone())
	}
	return out
}

// Get returns a copy of the question with the given id.
func (c *Collection) Get(id string) (models.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.questions[i].Clone(), true
	}
	return models.Question{}, false
}

// IndexOf returns the current position of the question, or -1.
func (c *Collection) IndexOf(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOf(id)
}

func (c *Collection) indexOf(id string) int {
	for i := range c.questions {
		if c.questions[i].ID == id {
			return i
		}
	}
	return -1
}

// Insert places the question at index when it falls within [0, len],
// otherwise appends. Drop-before-target insertions pass the target's current
// position: the new question takes that position and the target and all its
// successors shift down by one.
func (c *Collection) Insert(q models.Question, index *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertAt(q, index)
}

// InsertBefore inserts the question at the target question's current
// position, appending when the target has vanished. Lookup and insertion
// happen under one lock so the target cannot move in between.
func (c *Collection) InsertBefore(q models.Question, targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(targetID); i >= 0 {
		c.insertAt(q, &i)
		return
	}
	c.insertAt(q, nil)
}

func (c *Collection) insertAt(q models.Question, index *int) {
	q = q.Clone()
	if index == nil || *index < 0 || *index > len(c.questions) {
		c.questions = append(c.questions, q)
	} else {
		i := *index
		c.questions = append(c.questions, models.Question{})
		copy(c.questions[i+1:], c.questions[i:])
		c.questions[i] = q
	}
	c.changed()
}

// Update shallow-merges the patch into the matching question. A vanished id
// is a logged no-op.
func (c *Collection) Update(id string, patch models.QuestionPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		c.logger.Debug("update on missing question ignored", "question_id", id)
		return
	}
	patch.Apply(&c.questions[i])
	c.questionChanged(i)
	c.changed()
}

// Mutate applies fn to the matching question under the collection lock, so
// read-modify-write edits (option text, logic rule lists) cannot interleave
// with other mutations. fn gets a copy; it is stored back only when fn
// returns nil, so an error abandons the edit. A vanished id is a logged
// no-op.
func (c *Collection) Mutate(id string, fn func(q *models.Question) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		c.logger.Debug("mutate on missing question ignored", "question_id", id)
		return nil
	}
	q := c.questions[i].Clone()
	if err := fn(&q); err != nil {
		return err
	}
	c.questions[i] = q
	c.questionChanged(i)
	c.changed()
	return nil
}

// Delete removes the matching question. Logic rules elsewhere that reference
// the deleted id are left alone; dangling references are tolerated by the
// logic engine and by editor rendering.
func (c *Collection) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		c.logger.Debug("delete on missing question ignored", "question_id", id)
		return
	}
	c.questions = append(c.questions[:i], c.questions[i+1:]...)
	c.changed()
}

// Duplicate clones the matching question under a fresh id with " (Copy)"
// appended to the title, and appends it at the end of the sequence.
func (c *Collection) Duplicate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		c.logger.Debug("duplicate on missing question ignored", "question_id", id)
		return
	}
	clone := c.questions[i].Clone()
	clone.ID = newQuestionID()
	clone.Title = clone.Title + " (Copy)"
	c.questions = append(c.questions, clone)
	c.changed()
}

// Move reorders by remove-and-reinsert. Out-of-range indices and from == to
// are no-ops that leave the sequence untouched.
func (c *Collection) Move(from, to int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.move(from, to)
}

// MoveTo moves the source question to the target question's current
// position. Both lookups and the move happen under one lock. Missing ids and
// source == target are no-ops.
func (c *Collection) MoveTo(sourceID, targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.indexOf(sourceID)
	to := c.indexOf(targetID)
	if from < 0 || to < 0 || from == to {
		return
	}
	c.move(from, to)
}

func (c *Collection) move(from, to int) {
	n := len(c.questions)
	if from < 0 || from >= n || to < 0 || to >= n {
		c.logger.Debug("move with out-of-range index ignored", "from", from, "to", to)
		return
	}
	if from == to {
		return
	}
	q := c.questions[from]
	c.questions = append(c.questions[:from], c.questions[from+1:]...)
	c.questions = append(c.questions, models.Question{})
	copy(c.questions[to+1:], c.questions[to:])
	c.questions[to] = q
	c.changed()
}

func (c *Collection) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Collection) questionChanged(i int) {
	if c.onQuestionChanged != nil {
		c.onQuestionChanged(c.questions[i].Clone())
	}
}
