package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/formlab/builder-service/internal/models"
)

// ParseProjectIDParam extracts the opaque project id path parameter. An
// empty id writes the error response and returns "".
func ParseProjectIDParam(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("project_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid project_id",
			Details: "project id cannot be empty",
		})
	}
	return id
}

// ParseBuilderKind reads the builder kind from the "kind" query parameter.
// The survey builder is the default; anything unknown writes the error
// response and returns ("", false).
func ParseBuilderKind(c *gin.Context) (models.BuilderKind, bool) {
	raw := strings.TrimSpace(c.DefaultQuery("kind", string(models.KindSurvey)))
	kind := models.BuilderKind(raw)
	switch kind {
	case models.KindSurvey, models.KindScreening:
		return kind, true
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Message: "Invalid builder kind",
		Details: "kind must be one of: survey, screening",
	})
	return "", false
}
