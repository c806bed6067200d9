package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/formlab/builder-service/internal/services"
	"github.com/formlab/builder-service/internal/utils"
	"github.com/formlab/builder-service/internal/validator"
)

type HandlerManager struct {
	draftHandler    *DraftHandler
	questionHandler *QuestionHandler
	logicHandler    *LogicHandler
	previewHandler  *PreviewHandler
}

func NewHandlerManager(
	builderService services.BuilderService,
	previewService services.PreviewService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		draftHandler:    NewDraftHandler(builderService, exportService, logger),
		questionHandler: NewQuestionHandler(builderService, validator, logger),
		logicHandler:    NewLogicHandler(builderService, previewService, logger),
		previewHandler:  NewPreviewHandler(builderService, previewService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "builder-service",
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/toolbox", GetToolbox)

		drafts := v1.Group("/drafts/:project_id")
		{
			// Session lifecycle
			drafts.POST("/open", hm.draftHandler.OpenDraft)
			drafts.DELETE("/close", hm.draftHandler.CloseDraft)
			drafts.GET("", hm.draftHandler.GetDraft)
			drafts.POST("/save", hm.draftHandler.SaveDraft)
			drafts.GET("/export", hm.draftHandler.ExportDraft)

			// Question list operations
			questions := drafts.Group("/questions")
			{
				questions.POST("", hm.questionHandler.InsertQuestion)
				questions.PUT("/move", hm.questionHandler.MoveQuestion)
				questions.PATCH("/:id", hm.questionHandler.UpdateQuestion)
				questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
				questions.POST("/:id/duplicate", hm.questionHandler.DuplicateQuestion)

				// Editing buffer
				questions.POST("/:id/field/input", hm.questionHandler.FieldInput)
				questions.POST("/:id/field/blur", hm.questionHandler.FieldBlur)

				// Logic rules
				questions.GET("/:id/logic", hm.logicHandler.DescribeRules)
				questions.POST("/:id/logic", hm.logicHandler.AddRule)
				questions.DELETE("/:id/logic/:index", hm.logicHandler.RemoveRule)
			}

			// Drag and drop
			drag := drafts.Group("/drag")
			{
				drag.POST("/start", hm.questionHandler.DragStart)
				drag.POST("/end", hm.questionHandler.DragEnd)
			}

			// Preview
			drafts.POST("/preview/evaluate", hm.previewHandler.Evaluate)
		}
	}
}
