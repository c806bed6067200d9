package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formlab/builder-service/internal/builder"
	"github.com/formlab/builder-service/internal/models"
	"github.com/formlab/builder-service/internal/services"
	"github.com/formlab/builder-service/internal/utils"
	"github.com/formlab/builder-service/internal/validator"
)

type QuestionHandler struct {
	BaseHandler
	builderService services.BuilderService
	validator      *validator.Validator
}

func NewQuestionHandler(
	builderService services.BuilderService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:    NewBaseHandler(logger),
		builderService: builderService,
		validator:      validator,
	}
}

// MoveQuestionRequest reorders one question by position.
type MoveQuestionRequest struct {
	From int `json:"from" validate:"min=0"`
	To   int `json:"to" validate:"min=0"`
}

// FieldInputRequest carries one keystroke's buffered value.
type FieldInputRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// FieldBlurRequest commits the named field's buffer.
type FieldBlurRequest struct {
	Field string `json:"field" validate:"required"`
}

// InsertQuestion creates a question, optionally at a position
// @Summary Insert question
// @Description Creates a question of the given type with registry defaults, optionally prefilled
// @Tags questions
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param request body services.InsertQuestionRequest true "Question type, optional index and prefill"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id}/questions [post]
func (h *QuestionHandler) InsertQuestion(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	var req services.InsertQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Inserting question", "project_id", projectID, "question_type", req.Type)

	question, err := h.builderService.InsertQuestion(projectID, kind, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion applies a partial patch to one question
// @Summary Update question
// @Description Applies only the supplied fields; absent fields are untouched
// @Tags questions
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param id path string true "Question ID"
// @Param patch body models.QuestionPatch true "Partial patch"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/{id} [patch]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}
	questionID := c.Param("id")

	var patch models.QuestionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.builderService.UpdateQuestion(projectID, kind, questionID, patch); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question updated"})
}

// DeleteQuestion removes one question
// @Summary Delete question
// @Description Removes the question; rules on other questions that reference it are left in place
// @Tags questions
// @Produce json
// @Param project_id path string true "Project ID"
// @Param id path string true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	if err := h.builderService.DeleteQuestion(projectID, kind, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted"})
}

// DuplicateQuestion appends a deep copy of the question
// @Summary Duplicate question
// @Description Appends a copy with a fresh id and " (Copy)" suffixed title
// @Tags questions
// @Produce json
// @Param project_id path string true "Project ID"
// @Param id path string true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/{id}/duplicate [post]
func (h *QuestionHandler) DuplicateQuestion(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	if err := h.builderService.DuplicateQuestion(projectID, kind, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question duplicated"})
}

// MoveQuestion reorders the list by position
// @Summary Move question
// @Tags questions
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param request body MoveQuestionRequest true "From and to positions"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/move [put]
func (h *QuestionHandler) MoveQuestion(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	var req MoveQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		h.handleServiceError(c, validator.ToValidationErrors(err))
		return
	}

	if err := h.builderService.MoveQuestion(projectID, kind, req.From, req.To); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question moved"})
}

// FieldInput buffers one keystroke's value without touching the canonical list
// @Summary Buffer field input
// @Description Routes a draft value into the question's field buffer; commits on blur or debounce
// @Tags questions
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param id path string true "Question ID"
// @Param request body FieldInputRequest true "Field name and draft value"
// @Success 202 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/{id}/field/input [post]
func (h *QuestionHandler) FieldInput(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	var req FieldInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.builderService.FieldInput(projectID, kind, c.Param("id"), req.Field, req.Value); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SuccessResponse{Message: "Input buffered"})
}

// FieldBlur commits the field's buffer synchronously
// @Summary Commit field buffer
// @Tags questions
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param id path string true "Question ID"
// @Param request body FieldBlurRequest true "Field name"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/{id}/field/blur [post]
func (h *QuestionHandler) FieldBlur(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	var req FieldBlurRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.builderService.FieldBlur(projectID, kind, c.Param("id"), req.Field); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Field committed"})
}

// DragStart records a gesture's provenance
// @Summary Start drag
// @Description Registers a toolbox or canvas drag gesture
// @Tags drag
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param request body services.DragStartRequest true "Drag source plus type or question id"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /drafts/{project_id}/drag/start [post]
func (h *QuestionHandler) DragStart(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	var req services.DragStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.builderService.DragStart(projectID, kind, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Drag started"})
}

// DragEnd resolves the gesture against its drop target
// @Summary End drag
// @Description Applies the deterministic drop outcome; invalid targets are a no-op
// @Tags drag
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param target body builder.DropTarget true "Drop target"
// @Success 200 {object} services.DraftView
// @Failure 400 {object} ErrorResponse
// @Router /drafts/{project_id}/drag/end [post]
func (h *QuestionHandler) DragEnd(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	var target builder.DropTarget
	if err := c.ShouldBindJSON(&target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.builderService.DragEnd(projectID, kind, target); err != nil {
		h.handleServiceError(c, err)
		return
	}

	view, err := h.builderService.Snapshot(projectID, kind)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
