package builder

import (
	"log/slog"
	"sync"

	"github.com/formlab/builder-service/internal/models"
)

// DragSource is the namespace a drag originated from. A toolbox item and a
// live question share the same reordering surface, so every drag-end must
// branch on provenance; treating every drag as a reorder would corrupt the
// list with phantom type-name entries.
type DragSource string

const (
	SourceToolbox DragSource = "toolbox"
	SourceCanvas  DragSource = "canvas"
)

// DropTarget describes where the pointer was released.
type DropTarget struct {
	// Kind is one of the DropOn* constants.
	Kind string `json:"kind"`
	// QuestionID is set when Kind is DropOnQuestion.
	QuestionID string `json:"questionId,omitempty"`
}

const (
	// DropOnQuestion: released over a live question in the canvas.
	DropOnQuestion = "question"
	// DropOnCanvas: released over the canvas's designated empty drop zone.
	DropOnCanvas = "canvas"
	// DropOnToolbox: released back over the toolbox palette.
	DropOnToolbox = "toolbox"
	// DropOnNone: released outside any drop zone.
	DropOnNone = "none"
)

// DragState is the reconciler's two-state machine.
type DragState int

const (
	DragIdle DragState = iota
	DragActive
)

// Reconciler reduces one pointer drag gesture into exactly one Collection
// call. It owns no list state of its own.
type Reconciler struct {
	collection *Collection
	logger     *slog.Logger

	mu    sync.Mutex
	state DragState
	// Provenance recorded at drag-start.
	source      DragSource
	draggedID   string              // canvas drags: the live question's id
	draggedType models.QuestionType // toolbox drags: the template's type tag
}

func NewReconciler(collection *Collection, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{collection: collection, logger: logger}
}

// State returns the current machine state.
func (r *Reconciler) State() DragState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// StartToolboxDrag enters Dragging for a toolbox template of the given type.
func (r *Reconciler) StartToolboxDrag(t models.QuestionType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = DragActive
	r.source = SourceToolbox
	r.draggedType = t
	r.draggedID = ""
}

// StartCanvasDrag enters Dragging for the live question with the given id.
func (r *Reconciler) StartCanvasDrag(questionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = DragActive
	r.source = SourceCanvas
	r.draggedID = questionID
	r.draggedType = ""
}

// CanDrop reports whether the hover target is a valid drop for the current
// drag. Pure derived read used for live highlight affordances; it never
// mutates anything.
func (r *Reconciler) CanDrop(target DropTarget) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != DragActive {
		return false
	}
	switch r.source {
	case SourceToolbox:
		return target.Kind == DropOnCanvas || target.Kind == DropOnQuestion
	case SourceCanvas:
		return target.Kind == DropOnQuestion && target.QuestionID != r.draggedID
	}
	return false
}

// EndDrag leaves Dragging and fires exactly one deterministic rule based on
// (source, target):
//
//   - toolbox → canvas/question: insert a new question of the recorded type,
//     before the target question when there is one (the new question takes
//     the target's former index), else appended.
//   - toolbox → toolbox or nothing: no-op. Drag libraries report hovers over
//     non-drop zones; changing one's mind mid-drag must not add a question.
//   - canvas → different question: move(sourceIndex, targetIndex).
//   - canvas → same question, or nothing: no-op; the presentation layer
//     snaps the item back.
func (r *Reconciler) EndDrag(target DropTarget) {
	r.mu.Lock()
	if r.state != DragActive {
		r.mu.Unlock()
		r.logger.Debug("drag end without active drag ignored")
		return
	}
	source, draggedID, draggedType := r.source, r.draggedID, r.draggedType
	r.state = DragIdle
	r.draggedID = ""
	r.draggedType = ""
	r.mu.Unlock()

	switch source {
	case SourceToolbox:
		switch target.Kind {
		case DropOnCanvas:
			r.collection.Insert(NewQuestion(draggedType), nil)
		case DropOnQuestion:
			r.collection.InsertBefore(NewQuestion(draggedType), target.QuestionID)
		default:
			// Dropped back on the toolbox or outside any zone.
		}
	case SourceCanvas:
		if target.Kind != DropOnQuestion || target.QuestionID == draggedID {
			return
		}
		r.collection.MoveTo(draggedID, target.QuestionID)
	}
}
