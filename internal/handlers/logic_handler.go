package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/formlab/builder-service/internal/services"
	"github.com/formlab/builder-service/internal/utils"
)

type LogicHandler struct {
	BaseHandler
	builderService services.BuilderService
	previewService services.PreviewService
}

func NewLogicHandler(
	builderService services.BuilderService,
	previewService services.PreviewService,
	logger utils.Logger,
) *LogicHandler {
	return &LogicHandler{
		BaseHandler:    NewBaseHandler(logger),
		builderService: builderService,
		previewService: previewService,
	}
}

// AddRule attaches a logic rule to a question
// @Summary Add logic rule
// @Description Appends a show or jump rule; self-referential rules are rejected
// @Tags logic
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param id path string true "Question ID"
// @Param rule body services.AddRuleRequest true "Rule condition, action and target"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/{id}/logic [post]
func (h *LogicHandler) AddRule(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}
	questionID := c.Param("id")

	var req services.AddRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Adding logic rule", "project_id", projectID, "question_id", questionID, "action", req.Action)

	if err := h.builderService.AddRule(projectID, kind, questionID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Message: "Rule added"})
}

// RemoveRule removes the rule at a position
// @Summary Remove logic rule
// @Tags logic
// @Produce json
// @Param project_id path string true "Project ID"
// @Param id path string true "Question ID"
// @Param index path int true "Rule position"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/{id}/logic/{index} [delete]
func (h *LogicHandler) RemoveRule(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid rule index",
			Details: err.Error(),
		})
		return
	}

	if err := h.builderService.RemoveRule(projectID, kind, c.Param("id"), index); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Rule removed"})
}

// DescribeRules renders a question's rules for the logic panel
// @Summary Describe logic rules
// @Description Resolves rule references to question titles; dangling references get a fallback label
// @Tags logic
// @Produce json
// @Param project_id path string true "Project ID"
// @Param id path string true "Question ID"
// @Success 200 {array} services.RuleDescription
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id}/questions/{id}/logic [get]
func (h *LogicHandler) DescribeRules(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	view, err := h.builderService.Snapshot(projectID, kind)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	descs := h.previewService.DescribeRules(view.Questions, c.Param("id"))
	c.JSON(http.StatusOK, descs)
}
