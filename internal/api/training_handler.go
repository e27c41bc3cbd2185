package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/service"
)

type TrainingHandler struct {
	trainingService service.TrainingService
	logger          *slog.Logger
}

func NewTrainingHandler(trainingService service.TrainingService, logger *slog.Logger) *TrainingHandler {
	return &TrainingHandler{trainingService: trainingService, logger: logger}
}

// GetWeek godoc
// @Summary Current week of the user, personalized or merged across enrollments
// @Tags Training
// @Produce json
// @Success 200 {object} domain.WeeklyPlan
// @Failure 404 {object} gin.H "No enrollment"
// @Router /training/week [get]
func (h *TrainingHandler) GetWeek(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)
	plan, err := h.trainingService.GetWeeklyPlan(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
