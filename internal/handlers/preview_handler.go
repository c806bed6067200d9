package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formlab/builder-service/internal/models"
	"github.com/formlab/builder-service/internal/services"
	"github.com/formlab/builder-service/internal/utils"
)

type PreviewHandler struct {
	BaseHandler
	builderService services.BuilderService
	previewService services.PreviewService
}

func NewPreviewHandler(
	builderService services.BuilderService,
	previewService services.PreviewService,
	logger utils.Logger,
) *PreviewHandler {
	return &PreviewHandler{
		BaseHandler:    NewBaseHandler(logger),
		builderService: builderService,
		previewService: previewService,
	}
}

// EvaluateRequest carries a respondent's answers so far, keyed by question id.
type EvaluateRequest struct {
	Answers map[string]string `json:"answers"`
}

// Evaluate decides visibility and branching for every question
// @Summary Evaluate logic
// @Description Runs each question's rules against the answers map; first matching rule wins
// @Tags preview
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param request body EvaluateRequest true "Answers keyed by question id"
// @Success 200 {array} services.QuestionEvaluation
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id}/preview/evaluate [post]
func (h *PreviewHandler) Evaluate(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if req.Answers == nil {
		req.Answers = map[string]string{}
	}

	view, err := h.builderService.Snapshot(projectID, kind)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	results := h.previewService.Evaluate(view.Questions, req.Answers)
	c.JSON(http.StatusOK, results)
}

// GetToolbox returns the template registry the palette renders
// @Summary Toolbox registry
// @Tags toolbox
// @Produce json
// @Success 200 {array} models.ToolboxCategory
// @Router /toolbox [get]
func GetToolbox(c *gin.Context) {
	c.JSON(http.StatusOK, models.ToolboxRegistry)
}
