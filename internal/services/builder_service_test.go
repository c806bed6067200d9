package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/formlab/builder-service/internal/builder"
	"github.com/formlab/builder-service/internal/events"
	"github.com/formlab/builder-service/internal/models"
	"github.com/formlab/builder-service/internal/validator"
)

// MockDraftRepository is a mock implementation of DraftRepository
type MockDraftRepository struct {
	mock.Mock
}

func (m *MockDraftRepository) Get(ctx context.Context, projectID string, kind models.BuilderKind) (*models.Draft, error) {
	args := m.Called(ctx, projectID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Draft), args.Error(1)
}

func (m *MockDraftRepository) Save(ctx context.Context, projectID string, kind models.BuilderKind, questions []models.Question) error {
	args := m.Called(ctx, projectID, kind, questions)
	return args.Error(0)
}

func (m *MockDraftRepository) Delete(ctx context.Context, projectID string, kind models.BuilderKind) error {
	args := m.Called(ctx, projectID, kind)
	return args.Error(0)
}

func newTestBuilderService(repo *MockDraftRepository) (BuilderService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher(slog.Default())
	svc := NewBuilderService(repo, publisher, slog.Default(), validator.New())
	return svc, publisher
}

func TestBuilderService_OpenLoadsPersistedDraft(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, publisher := newTestBuilderService(repo)
	defer svc.DisposeAll()

	draft := &models.Draft{ProjectID: "p1", Kind: models.KindSurvey}
	require.NoError(t, draft.EncodeQuestions([]models.Question{
		{ID: "q1", Type: models.ShortText, Title: "Name"},
	}))
	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(draft, nil)

	view, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	assert.Empty(t, view.LoadWarning)
	require.Len(t, view.Questions, 1)
	assert.Equal(t, "Name", view.Questions[0].Title)

	published := publisher.PublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventDraftOpened, published[0].Type)
	repo.AssertExpectations(t)
}

func TestBuilderService_OpenSurvivesLoadFailure(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, errors.New("connection refused"))

	view, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	assert.NotEmpty(t, view.LoadWarning)
	assert.Empty(t, view.Questions)
}

func TestBuilderService_OpenIsIdempotent(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil).Once()

	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	_, err = svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)

	// Second open reuses the live session instead of reloading.
	view, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 1)
	repo.AssertExpectations(t)
}

func TestBuilderService_InsertQuestionValidatesType(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)

	_, err = svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: "hologram"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestBuilderService_InsertQuestionAtIndex(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)

	first, err := svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)
	second, err := svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.MultipleChoice)})
	require.NoError(t, err)

	idx := 1
	middle, err := svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.Date), Index: &idx})
	require.NoError(t, err)

	view, err := svc.Snapshot("p1", models.KindSurvey)
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)
	assert.Equal(t, first.ID, view.Questions[0].ID)
	assert.Equal(t, middle.ID, view.Questions[1].ID)
	assert.Equal(t, second.ID, view.Questions[2].ID)
}

func TestBuilderService_OperationsRequireOpenSession(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	_, err := svc.Snapshot("ghost", models.KindSurvey)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = svc.DeleteQuestion("ghost", models.KindSurvey, "q1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBuilderService_DragToolboxOntoQuestion(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)

	anchor, err := svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)

	err = svc.DragStart("p1", models.KindSurvey, &DragStartRequest{
		Source: string(builder.SourceToolbox),
		Type:   string(models.Dropdown),
	})
	require.NoError(t, err)
	err = svc.DragEnd("p1", models.KindSurvey, builder.DropTarget{
		Kind:       builder.DropOnQuestion,
		QuestionID: anchor.ID,
	})
	require.NoError(t, err)

	view, err := svc.Snapshot("p1", models.KindSurvey)
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, models.Dropdown, view.Questions[0].Type)
	assert.Equal(t, anchor.ID, view.Questions[1].ID)
}

func TestBuilderService_DragStartRejectsIncompleteRequests(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)

	err = svc.DragStart("p1", models.KindSurvey, &DragStartRequest{Source: string(builder.SourceToolbox)})
	assert.ErrorIs(t, err, ErrBadRequest)

	err = svc.DragStart("p1", models.KindSurvey, &DragStartRequest{Source: string(builder.SourceCanvas)})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestBuilderService_AddRuleRejectsSelfReference(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)

	q, err := svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.MultipleChoice)})
	require.NoError(t, err)

	err = svc.AddRule("p1", models.KindSurvey, q.ID, &AddRuleRequest{
		Condition: models.RuleCondition{QuestionID: q.ID, Answer: "Yes"},
		Action:    string(models.ActionShow),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuleInvalid)
}

func TestBuilderService_SaveFlushesThroughRepository(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, publisher := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	repo.On("Save", mock.Anything, "p1", models.KindSurvey, mock.Anything).Return(nil)

	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	_, err = svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)

	require.NoError(t, svc.Save(context.Background(), "p1", models.KindSurvey))
	repo.AssertCalled(t, "Save", mock.Anything, "p1", models.KindSurvey, mock.Anything)

	saved := false
	for _, e := range publisher.PublishedEvents() {
		if e.Type == events.EventDraftSaved {
			saved = true
		}
	}
	assert.True(t, saved)
}

func TestBuilderService_SaveFailureSurfacedNotRetried(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, publisher := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	repo.On("Save", mock.Anything, "p1", models.KindSurvey, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	_, err = svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)

	err = svc.Save(context.Background(), "p1", models.KindSurvey)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDraftSaveFailed)

	// Local state stays intact and the failure is visible on the view.
	view, err := svc.Snapshot("p1", models.KindSurvey)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 1)
	assert.True(t, view.LastSave.Failed)
	assert.Contains(t, view.LastSave.Error, "disk full")

	failed := false
	for _, e := range publisher.PublishedEvents() {
		if e.Type == events.EventDraftSaveFailed {
			failed = true
		}
	}
	assert.True(t, failed)
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestBuilderService_CloseFlushesAndRemovesSession(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, publisher := newTestBuilderService(repo)

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	repo.On("Save", mock.Anything, "p1", models.KindSurvey, mock.Anything).Return(nil)

	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	_, err = svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background(), "p1", models.KindSurvey))
	repo.AssertCalled(t, "Save", mock.Anything, "p1", models.KindSurvey, mock.Anything)

	_, err = svc.Snapshot("p1", models.KindSurvey)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(context.Background(), "p1", models.KindSurvey), ErrSessionNotFound)

	closed := false
	for _, e := range publisher.PublishedEvents() {
		if e.Type == events.EventDraftClosed {
			closed = true
		}
	}
	assert.True(t, closed)
}

func TestBuilderService_SurveyAndScreeningAreIsolated(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	repo.On("Get", mock.Anything, "p1", models.KindScreening).Return(nil, nil)

	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "p1", models.KindScreening)
	require.NoError(t, err)

	_, err = svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)

	survey, err := svc.Snapshot("p1", models.KindSurvey)
	require.NoError(t, err)
	screening, err := svc.Snapshot("p1", models.KindScreening)
	require.NoError(t, err)
	assert.Len(t, survey.Questions, 1)
	assert.Empty(t, screening.Questions)
}

func TestBuilderService_FieldEditingCommitsOnBlur(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)

	q, err := svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)

	require.NoError(t, svc.FieldInput("p1", models.KindSurvey, q.ID, "title", "How old are you?"))
	require.NoError(t, svc.FieldBlur("p1", models.KindSurvey, q.ID, "title"))

	view, err := svc.Snapshot("p1", models.KindSurvey)
	require.NoError(t, err)
	assert.Equal(t, "How old are you?", view.Questions[0].Title)

	err = svc.FieldInput("p1", models.KindSurvey, q.ID, "placeholder", "x")
	assert.ErrorIs(t, err, builder.ErrUnknownField)
}

func TestBuilderService_MutationsArmAutosave(t *testing.T) {
	repo := new(MockDraftRepository)
	svc, _ := newTestBuilderService(repo)
	defer svc.DisposeAll()

	saveCh := make(chan []models.Question, 4)
	repo.On("Get", mock.Anything, "p1", models.KindSurvey).Return(nil, nil)
	repo.On("Save", mock.Anything, "p1", models.KindSurvey, mock.Anything).
		Run(func(args mock.Arguments) {
			saveCh <- args.Get(3).([]models.Question)
		}).
		Return(nil)

	_, err := svc.Open(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)

	sess, ok := svc.SessionFor("p1", models.KindSurvey)
	require.True(t, ok)
	require.NotNil(t, sess)

	_, err = svc.InsertQuestion("p1", models.KindSurvey, &InsertQuestionRequest{Type: string(models.ShortText)})
	require.NoError(t, err)

	// The default autosave window is seconds; force the pending write out.
	require.NoError(t, svc.Save(context.Background(), "p1", models.KindSurvey))

	select {
	case snapshot := <-saveCh:
		assert.Len(t, snapshot, 1)
	case <-time.After(time.Second):
		t.Fatal("expected a save to reach the repository")
	}
}
