package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formlab/builder-service/internal/services"
	"github.com/formlab/builder-service/internal/utils"
)

type DraftHandler struct {
	BaseHandler
	builderService services.BuilderService
	exportService  services.ExportService
}

func NewDraftHandler(
	builderService services.BuilderService,
	exportService services.ExportService,
	logger utils.Logger,
) *DraftHandler {
	return &DraftHandler{
		BaseHandler:    NewBaseHandler(logger),
		builderService: builderService,
		exportService:  exportService,
	}
}

// OpenDraft starts (or resumes) a builder session for the project
// @Summary Open builder
// @Description Loads the persisted draft and starts an editing session
// @Tags drafts
// @Produce json
// @Param project_id path string true "Project ID"
// @Param kind query string false "Builder kind (survey or screening)"
// @Success 200 {object} services.DraftView
// @Failure 400 {object} ErrorResponse
// @Router /drafts/{project_id}/open [post]
func (h *DraftHandler) OpenDraft(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Opening builder", "project_id", projectID, "builder_kind", kind)

	view, err := h.builderService.Open(c.Request.Context(), projectID, kind)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CloseDraft flushes and disposes the builder session
// @Summary Close builder
// @Description Flushes pending changes and cancels all session timers
// @Tags drafts
// @Produce json
// @Param project_id path string true "Project ID"
// @Param kind query string false "Builder kind (survey or screening)"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id}/close [delete]
func (h *DraftHandler) CloseDraft(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Closing builder", "project_id", projectID, "builder_kind", kind)

	if err := h.builderService.Close(c.Request.Context(), projectID, kind); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Builder session closed"})
}

// GetDraft returns the current in-memory snapshot
// @Summary Get draft snapshot
// @Tags drafts
// @Produce json
// @Param project_id path string true "Project ID"
// @Param kind query string false "Builder kind (survey or screening)"
// @Success 200 {object} services.DraftView
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id} [get]
func (h *DraftHandler) GetDraft(c *gin.Context) {
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

	c.JSON(http.StatusOK, view)
}

// SaveDraft forces an immediate save, bypassing the autosave debounce
// @Summary Force save
// @Tags drafts
// @Produce json
// @Param project_id path string true "Project ID"
// @Param kind query string false "Builder kind (survey or screening)"
// @Success 200 {object} services.DraftView
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /drafts/{project_id}/save [post]
func (h *DraftHandler) SaveDraft(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Force saving draft", "project_id", projectID, "builder_kind", kind)

	if err := h.builderService.Save(c.Request.Context(), projectID, kind); err != nil {
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

// ExportDraft streams the persisted draft as a spreadsheet download
// @Summary Export draft
// @Description Exports the persisted question list as xlsx (default) or csv
// @Tags drafts
// @Produce application/octet-stream
// @Param project_id path string true "Project ID"
// @Param kind query string false "Builder kind (survey or screening)"
// @Param format query string false "Export format (xlsx or csv)"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{project_id}/export [get]
func (h *DraftHandler) ExportDraft(c *gin.Context) {
	projectID := ParseProjectIDParam(c)
	if projectID == "" {
		return
	}
	kind, ok := ParseBuilderKind(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "xlsx")
	h.LogRequest(c, "Exporting draft", "project_id", projectID, "builder_kind", kind, "format", format)

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case "xlsx":
		data, err = h.exportService.ExportDraftToExcel(c.Request.Context(), projectID, kind)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "csv":
		data, err = h.exportService.ExportDraftToCSV(c.Request.Context(), projectID, kind)
		contentType = "text/csv"
	default:
		h.RespondWithError(c, http.StatusBadRequest, "Unsupported export format", nil, format)
		return
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s-draft.%s", projectID, kind, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
