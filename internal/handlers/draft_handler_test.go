package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlab/builder-service/internal/events"
	"github.com/formlab/builder-service/internal/models"
	"github.com/formlab/builder-service/internal/services"
	"github.com/formlab/builder-service/internal/utils"
	"github.com/formlab/builder-service/internal/validator"
)

// memoryDraftRepository keeps drafts in a map, standing in for postgres.
type memoryDraftRepository struct {
	mu     sync.Mutex
	drafts map[string]*models.Draft
}

func newMemoryDraftRepository() *memoryDraftRepository {
	return &memoryDraftRepository{drafts: map[string]*models.Draft{}}
}

func (r *memoryDraftRepository) key(projectID string, kind models.BuilderKind) string {
	return projectID + "/" + string(kind)
}

func (r *memoryDraftRepository) Get(_ context.Context, projectID string, kind models.BuilderKind) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[r.key(projectID, kind)]
	if !ok {
		return nil, nil
	}
	return draft, nil
}

func (r *memoryDraftRepository) Save(_ context.Context, projectID string, kind models.BuilderKind, questions []models.Question) error {
	draft := &models.Draft{ProjectID: projectID, Kind: kind}
	if err := draft.EncodeQuestions(questions); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[r.key(projectID, kind)] = draft
	return nil
}

func (r *memoryDraftRepository) Delete(_ context.Context, projectID string, kind models.BuilderKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, r.key(projectID, kind))
	return nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, *memoryDraftRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemoryDraftRepository()
	slogger := slog.Default()
	v := validator.New()
	builderService := services.NewBuilderService(repo, events.NewMockEventPublisher(slogger), slogger, v)
	t.Cleanup(builderService.DisposeAll)
	previewService := services.NewPreviewService(slogger)
	exportService := services.NewExportService(repo, slogger)

	r := gin.New()
	hm := NewHandlerManager(builderService, previewService, exportService, v, utils.NewSlogLogger(slogger))
	hm.SetupRoutes(r)
	return r, repo
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDraftRoutes_OpenInsertSaveClose(t *testing.T) {
	r, repo := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/open", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/questions", gin.H{"type": "multiple-choice"})
	require.Equal(t, http.StatusCreated, w.Code)
	var question models.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &question))
	assert.NotEmpty(t, question.ID)
	assert.Equal(t, models.MultipleChoice, question.Type)
	assert.Len(t, question.Options, 2)

	w = doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view services.DraftView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.LastSave.Attempted)
	assert.False(t, view.LastSave.Failed)

	stored, err := repo.Get(context.Background(), "p1", models.KindSurvey)
	require.NoError(t, err)
	require.NotNil(t, stored)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/drafts/p1/close", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/drafts/p1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftRoutes_InvalidKindRejected(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/open?kind=quiz", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDraftRoutes_InsertUnknownTypeRejected(t *testing.T) {
	r, _ := setupTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/open", nil)
	w := doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/questions", gin.H{"type": "hologram"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDraftRoutes_FieldBufferCommitsOnBlur(t *testing.T) {
	r, _ := setupTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/open", nil)
	w := doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/questions", gin.H{"type": "short-text"})
	var question models.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &question))

	base := fmt.Sprintf("/api/v1/drafts/p1/questions/%s/field", question.ID)
	w = doJSON(t, r, http.MethodPost, base+"/input", gin.H{"field": "title", "value": "Your name"})
	require.Equal(t, http.StatusAccepted, w.Code)

	// Until blur, the canonical snapshot still holds the old title.
	w = doJSON(t, r, http.MethodGet, "/api/v1/drafts/p1", nil)
	var view services.DraftView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Empty(t, view.Questions[0].Title)

	w = doJSON(t, r, http.MethodPost, base+"/blur", gin.H{"field": "title"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/drafts/p1", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Your name", view.Questions[0].Title)
}

func TestDraftRoutes_LogicLifecycle(t *testing.T) {
	r, _ := setupTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/open", nil)
	w := doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/questions", gin.H{"type": "multiple-choice"})
	var source models.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &source))
	w = doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/questions", gin.H{"type": "short-text"})
	var owner models.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &owner))

	logicPath := fmt.Sprintf("/api/v1/drafts/p1/questions/%s/logic", owner.ID)
	w = doJSON(t, r, http.MethodPost, logicPath, gin.H{
		"condition": gin.H{"questionId": source.ID, "answer": "Yes"},
		"action":    "show",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Self-referential rules are rejected.
	w = doJSON(t, r, http.MethodPost, logicPath, gin.H{
		"condition": gin.H{"questionId": owner.ID, "answer": "Yes"},
		"action":    "show",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, logicPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var descs []services.RuleDescription
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &descs))
	require.Len(t, descs, 1)

	w = doJSON(t, r, http.MethodDelete, logicPath+"/0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, logicPath+"/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftRoutes_PreviewEvaluate(t *testing.T) {
	r, _ := setupTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/open", nil)
	w := doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/questions", gin.H{"type": "multiple-choice"})
	var q models.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))

	w = doJSON(t, r, http.MethodPost, "/api/v1/drafts/p1/preview/evaluate", gin.H{
		"answers": gin.H{q.ID: "Yes"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var results []services.QuestionEvaluation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Visible)
}

func TestToolboxRoute(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/toolbox", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var categories []models.ToolboxCategory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &categories))
	assert.NotEmpty(t, categories)
}
