package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlab/builder-service/internal/models"
)

func TestReconciler_ToolboxDropOnQuestionInsertsBefore(t *testing.T) {
	c := seedCollection(t, models.ShortText, models.LongText)
	r := NewReconciler(c, nil)
	before := ids(c)

	// Collection [A, B]; drag "rating" from the toolbox onto B.
	r.StartToolboxDrag(models.Rating)
	r.EndDrag(DropTarget{Kind: DropOnQuestion, QuestionID: before[1]})

	after := c.Snapshot()
	require.Len(t, after, 3)
	assert.Equal(t, before[0], after[0].ID)
	assert.Equal(t, models.Rating, after[1].Type)
	assert.Equal(t, before[1], after[2].ID)
	assert.Equal(t, DragIdle, r.State())
}

func TestReconciler_ToolboxDropOnEmptyCanvasAppends(t *testing.T) {
	c := seedCollection(t)
	r := NewReconciler(c, nil)

	r.StartToolboxDrag(models.Matrix)
	r.EndDrag(DropTarget{Kind: DropOnCanvas})

	snapshot := c.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, models.Matrix, snapshot[0].Type)
}

func TestReconciler_ToolboxDropOnToolboxIsNoOp(t *testing.T) {
	c := seedCollection(t, models.ShortText)
	r := NewReconciler(c, nil)

	r.StartToolboxDrag(models.Rating)
	r.EndDrag(DropTarget{Kind: DropOnToolbox})

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, DragIdle, r.State())
}

func TestReconciler_ToolboxDropOutsideIsNoOp(t *testing.T) {
	c := seedCollection(t, models.ShortText)
	r := NewReconciler(c, nil)

	r.StartToolboxDrag(models.Rating)
	r.EndDrag(DropTarget{Kind: DropOnNone})

	assert.Equal(t, 1, c.Len())
}

func TestReconciler_CanvasDragOntoOtherQuestionMoves(t *testing.T) {
	c := seedCollection(t, models.ShortText, models.LongText, models.Number)
	r := NewReconciler(c, nil)
	before := ids(c)

	// Collection [A, B, C]; drag B onto A.
	r.StartCanvasDrag(before[1])
	r.EndDrag(DropTarget{Kind: DropOnQuestion, QuestionID: before[0]})

	assert.Equal(t, []string{before[1], before[0], before[2]}, ids(c))
}

func TestReconciler_CanvasDragOntoSelfIsNoOp(t *testing.T) {
	c := seedCollection(t, models.ShortText, models.LongText)
	r := NewReconciler(c, nil)
	before := ids(c)

	r.StartCanvasDrag(before[0])
	r.EndDrag(DropTarget{Kind: DropOnQuestion, QuestionID: before[0]})

	assert.Equal(t, before, ids(c))
}

func TestReconciler_CanvasDragOutsideAnyZoneIsNoOp(t *testing.T) {
	c := seedCollection(t, models.ShortText, models.LongText)
	r := NewReconciler(c, nil)
	before := ids(c)

	r.StartCanvasDrag(before[1])
	r.EndDrag(DropTarget{Kind: DropOnNone})

	assert.Equal(t, before, ids(c))
}

func TestReconciler_EndWithoutStartIsNoOp(t *testing.T) {
	c := seedCollection(t, models.ShortText)
	r := NewReconciler(c, nil)

	r.EndDrag(DropTarget{Kind: DropOnCanvas})

	assert.Equal(t, 1, c.Len())
}

func TestReconciler_CanDropIsPure(t *testing.T) {
	c := seedCollection(t, models.ShortText, models.LongText)
	r := NewReconciler(c, nil)
	before := ids(c)

	assert.False(t, r.CanDrop(DropTarget{Kind: DropOnCanvas}), "idle drags accept nothing")

	r.StartToolboxDrag(models.Rating)
	assert.True(t, r.CanDrop(DropTarget{Kind: DropOnCanvas}))
	assert.True(t, r.CanDrop(DropTarget{Kind: DropOnQuestion, QuestionID: before[0]}))
	assert.False(t, r.CanDrop(DropTarget{Kind: DropOnToolbox}))
	r.EndDrag(DropTarget{Kind: DropOnToolbox})

	r.StartCanvasDrag(before[0])
	assert.False(t, r.CanDrop(DropTarget{Kind: DropOnQuestion, QuestionID: before[0]}), "self drop")
	assert.True(t, r.CanDrop(DropTarget{Kind: DropOnQuestion, QuestionID: before[1]}))
	assert.False(t, r.CanDrop(DropTarget{Kind: DropOnCanvas}))
	r.EndDrag(DropTarget{Kind: DropOnNone})

	// Probing validity never mutated the collection.
	assert.Equal(t, before, ids(c))
}
