package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formlab/builder-service/internal/builder"
	"github.com/formlab/builder-service/internal/events"
	"github.com/formlab/builder-service/internal/models"
	"github.com/formlab/builder-service/internal/repositories"
	"github.com/formlab/builder-service/internal/validator"
)

// DraftView is what clients see of one open builder: the authoritative
// question sequence plus save-state for non-blocking warnings.
type DraftView struct {
	ProjectID string             `json:"project_id"`
	Kind      models.BuilderKind `json:"kind"`
	Questions []models.Question  `json:"questions"`
	LastSave  builder.SaveStatus `json:"last_save"`
	// LoadWarning is set when the initial draft fetch failed and the
	// builder fell back to an empty collection instead of blocking.
	LoadWarning string `json:"load_warning,omitempty"`
}

// InsertQuestionRequest creates one question, optionally at a position and
// optionally prefilled from a template.
type InsertQuestionRequest struct {
	Type    string                `json:"type" validate:"required,question_type"`
	Index   *int                  `json:"index,omitempty"`
	Prefill *models.QuestionPatch `json:"prefill,omitempty"`
}

// DragStartRequest records a gesture's provenance.
type DragStartRequest struct {
	Source string `json:"source" validate:"required,drag_source"`
	// QuestionID is required for canvas drags.
	QuestionID string `json:"questionId,omitempty"`
	// Type is required for toolbox drags.
	Type string `json:"type,omitempty"`
}

// AddRuleRequest attaches one logic rule to a question.
type AddRuleRequest struct {
	Condition models.RuleCondition `json:"condition"`
	Action    string               `json:"action" validate:"required,logic_action"`
	TargetID  string               `json:"targetId,omitempty"`
}

// BuilderService manages one session per (project, builder kind) and routes
// every mutation through that session's engine.
type BuilderService interface {
	Open(ctx context.Context, projectID string, kind models.BuilderKind) (*DraftView, error)
	Close(ctx context.Context, projectID string, kind models.BuilderKind) error
	Snapshot(projectID string, kind models.BuilderKind) (*DraftView, error)
	Save(ctx context.Context, projectID string, kind models.BuilderKind) error

	InsertQuestion(projectID string, kind models.BuilderKind, req *InsertQuestionRequest) (*models.Question, error)
	UpdateQuestion(projectID string, kind models.BuilderKind, questionID string, patch models.QuestionPatch) error
	DeleteQuestion(projectID string, kind models.BuilderKind, questionID string) error
	DuplicateQuestion(projectID string, kind models.BuilderKind, questionID string) error
	MoveQuestion(projectID string, kind models.BuilderKind, from, to int) error

	FieldInput(projectID string, kind models.BuilderKind, questionID, field, value string) error
	FieldBlur(projectID string, kind models.BuilderKind, questionID, field string) error

	DragStart(projectID string, kind models.BuilderKind, req *DragStartRequest) error
	DragEnd(projectID string, kind models.BuilderKind, target builder.DropTarget) error

	AddRule(projectID string, kind models.BuilderKind, questionID string, req *AddRuleRequest) error
	RemoveRule(projectID string, kind models.BuilderKind, questionID string, index int) error

	SessionFor(projectID string, kind models.BuilderKind) (*builder.Session, bool)
	DisposeAll()
}

type builderService struct {
	repo      repositories.DraftRepository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	mu       sync.Mutex
	sessions map[string]*builder.Session
}

func NewBuilderService(
	repo repositories.DraftRepository,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) BuilderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &builderService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: v,
		sessions:  map[string]*builder.Session{},
	}
}

func sessionKey(projectID string, kind models.BuilderKind) string {
	return projectID + "/" + string(kind)
}

// Open starts (or returns) the builder session for the draft. A failed
// initial fetch is surfaced as a warning and the builder falls back to an
// empty collection rather than blocking.
func (s *builderService) Open(ctx context.Context, projectID string, kind models.BuilderKind) (*DraftView, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[sessionKey(projectID, kind)]; ok {
		s.mu.Unlock()
		return s.view(sess, ""), nil
	}
	s.mu.Unlock()

	var questions []models.Question
	loadWarning := ""
	draft, err := s.repo.Get(ctx, projectID, kind)
	switch {
	case err != nil:
		s.logger.Error("draft load failed, starting empty", "project_id", projectID, "builder_kind", kind, "error", err)
		loadWarning = fmt.Sprintf("%v: %v", ErrDraftLoadFailed, err)
	case draft != nil:
		questions, err = draft.DecodeQuestions()
		if err != nil {
			s.logger.Error("draft snapshot corrupt, starting empty", "project_id", projectID, "error", err)
			loadWarning = fmt.Sprintf("%v: %v", ErrDraftLoadFailed, err)
			questions = nil
		}
	}

	var sess *builder.Session
	sess = builder.NewSession(builder.SessionOpts{
		ProjectID: projectID,
		Kind:      kind,
		Logger:    s.logger,
		Save: func(ctx context.Context, snapshot []models.Question) error {
			return s.repo.Save(ctx, projectID, kind, snapshot)
		},
		OnSaveResult: func(err error) {
			s.publishSaveResult(sess, err)
		},
	})
	sess.Load(questions)

	s.mu.Lock()
	// Another Open may have raced us; keep the first session and discard ours.
	if existing, ok := s.sessions[sessionKey(projectID, kind)]; ok {
		s.mu.Unlock()
		sess.Dispose()
		return s.view(existing, ""), nil
	}
	s.sessions[sessionKey(projectID, kind)] = sess
	s.mu.Unlock()

	s.publishSessionEvent(events.EventDraftOpened, sess)
	return s.view(sess, loadWarning), nil
}

// Close flushes the session once and cancels all of its timers.
func (s *builderService) Close(ctx context.Context, projectID string, kind models.BuilderKind) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionKey(projectID, kind)]
	if ok {
		delete(s.sessions, sessionKey(projectID, kind))
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	// Best effort final flush before the timers go away.
	if err := sess.Save(ctx); err != nil {
		s.logger.Warn("final save on close failed", "project_id", projectID, "builder_kind", kind, "error", err)
	}
	sess.Dispose()
	s.publishSessionEvent(events.EventDraftClosed, sess)
	return nil
}

func (s *builderService) Snapshot(projectID string, kind models.BuilderKind) (*DraftView, error) {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return nil, err
	}
	return s.view(sess, ""), nil
}

func (s *builderService) Save(ctx context.Context, projectID string, kind models.BuilderKind) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	if err := sess.Save(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDraftSaveFailed, err)
	}
	return nil
}

func (s *builderService) InsertQuestion(projectID string, kind models.BuilderKind, req *InsertQuestionRequest) (*models.Question, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, validator.ToValidationErrors(err)
	}
	sess, err := s.session(projectID, kind)
	if err != nil {
		return nil, err
	}

	var q models.Question
	if req.Prefill != nil {
		q = builder.NewQuestionFromTemplate(models.QuestionType(req.Type), *req.Prefill)
	} else {
		q = builder.NewQuestion(models.QuestionType(req.Type))
	}
	sess.Collection().Insert(q, req.Index)
	return &q, nil
}

func (s *builderService) UpdateQuestion(projectID string, kind models.BuilderKind, questionID string, patch models.QuestionPatch) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	sess.Collection().Update(questionID, patch)
	return nil
}

func (s *builderService) DeleteQuestion(projectID string, kind models.BuilderKind, questionID string) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	sess.Collection().Delete(questionID)
	return nil
}

func (s *builderService) DuplicateQuestion(projectID string, kind models.BuilderKind, questionID string) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	sess.Collection().Duplicate(questionID)
	return nil
}

func (s *builderService) MoveQuestion(projectID string, kind models.BuilderKind, from, to int) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	sess.Collection().Move(from, to)
	return nil
}

func (s *builderService) FieldInput(projectID string, kind models.BuilderKind, questionID, field, value string) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	return sess.FieldInput(questionID, field, value)
}

func (s *builderService) FieldBlur(projectID string, kind models.BuilderKind, questionID, field string) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	return sess.FieldBlur(questionID, field)
}

func (s *builderService) DragStart(projectID string, kind models.BuilderKind, req *DragStartRequest) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		return validator.ToValidationErrors(err)
	}
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	switch builder.DragSource(req.Source) {
	case builder.SourceToolbox:
		if req.Type == "" {
			return fmt.Errorf("%w: toolbox drag requires a question type", ErrBadRequest)
		}
		sess.Reconciler().StartToolboxDrag(models.QuestionType(req.Type))
	case builder.SourceCanvas:
		if req.QuestionID == "" {
			return fmt.Errorf("%w: canvas drag requires a question id", ErrBadRequest)
		}
		sess.Reconciler().StartCanvasDrag(req.QuestionID)
	}
	return nil
}

func (s *builderService) DragEnd(projectID string, kind models.BuilderKind, target builder.DropTarget) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	sess.Reconciler().EndDrag(target)
	return nil
}

func (s *builderService) AddRule(projectID string, kind models.BuilderKind, questionID string, req *AddRuleRequest) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		return validator.ToValidationErrors(err)
	}
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	rule := models.LogicRule{
		Condition: req.Condition,
		Action:    models.LogicAction(req.Action),
		TargetID:  req.TargetID,
	}
	if err := s.validator.Rule().ValidateRule(questionID, rule); err != nil {
		return fmt.Errorf("%w: %v", ErrRuleInvalid, err)
	}
	return sess.Logic().AddRule(questionID, rule)
}

func (s *builderService) RemoveRule(projectID string, kind models.BuilderKind, questionID string, index int) error {
	sess, err := s.session(projectID, kind)
	if err != nil {
		return err
	}
	if err := sess.Logic().RemoveRule(questionID, index); err != nil {
		return fmt.Errorf("%w: %v", ErrRuleNotFound, err)
	}
	return nil
}

func (s *builderService) SessionFor(projectID string, kind models.BuilderKind) (*builder.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey(projectID, kind)]
	return sess, ok
}

// DisposeAll tears down every open session. Used on shutdown.
func (s *builderService) DisposeAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = map[string]*builder.Session{}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Dispose()
	}
}

func (s *builderService) session(projectID string, kind models.BuilderKind) (*builder.Session, error) {
	sess, ok := s.SessionFor(projectID, kind)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *builderService) view(sess *builder.Session, loadWarning string) *DraftView {
	return &DraftView{
		ProjectID:   sess.ProjectID,
		Kind:        sess.Kind,
		Questions:   sess.Collection().Snapshot(),
		LastSave:    sess.LastSave(),
		LoadWarning: loadWarning,
	}
}

func (s *builderService) publishSaveResult(sess *builder.Session, saveErr error) {
	if s.publisher == nil || sess == nil {
		return
	}
	event := &events.DraftEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    "builder-service",
		Version:   "1.0",
	}
	if saveErr != nil {
		event.Type = events.EventDraftSaveFailed
		event.Data = events.DraftSaveFailedEvent{
			ProjectID: sess.ProjectID,
			Kind:      sess.Kind,
			Reason:    saveErr.Error(),
			FailedAt:  time.Now(),
		}
	} else {
		event.Type = events.EventDraftSaved
		event.Data = events.DraftSavedEvent{
			ProjectID:     sess.ProjectID,
			Kind:          sess.Kind,
			QuestionCount: sess.Collection().Len(),
			SavedAt:       time.Now(),
		}
	}
	if err := s.publisher.PublishDraftEvent(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish save event", "project_id", sess.ProjectID, "error", err)
	}
}

func (s *builderService) publishSessionEvent(eventType events.EventType, sess *builder.Session) {
	if s.publisher == nil {
		return
	}
	event := &events.DraftEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "builder-service",
		Version:   "1.0",
		Data: events.DraftSessionEvent{
			ProjectID:     sess.ProjectID,
			Kind:          sess.Kind,
			QuestionCount: sess.Collection().Len(),
			At:            time.Now(),
		},
	}
	if err := s.publisher.PublishDraftEvent(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish session event", "project_id", sess.ProjectID, "error", err)
	}
}
