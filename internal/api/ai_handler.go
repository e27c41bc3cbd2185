package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/service"
)

// AIHandler exposes the personalization flows.
type AIHandler struct {
	manager service.PersonalizationManager
	logger  *slog.Logger
}

func NewAIHandler(manager service.PersonalizationManager, logger *slog.Logger) *AIHandler {
	return &AIHandler{manager: manager, logger: logger}
}

type AdaptInjuryRequest struct {
	Injury *domain.InjuryReport `json:"injury" binding:"required"`
}

type RescheduleRequest struct {
	MissedWorkoutID string                         `json:"missedWorkoutId"`
	Constraints     *service.RescheduleConstraints `json:"constraints"`
}

type RecommendRequest struct {
	Profile *domain.AthleteProfile `json:"profile" binding:"required"`
}

// AdaptInjury godoc
// @Summary Record an injury and adapt the current week
// @Tags AI
// @Accept json
// @Produce json
// @Param body body AdaptInjuryRequest true "Injury"
// @Success 200 {object} domain.ProgramDocument
// @Failure 400 {object} gin.H "Missing injury details"
// @Failure 404 {object} gin.H "No enrollment"
// @Router /ai/adapt-injury [post]
func (h *AIHandler) AdaptInjury(c *gin.Context) {
	var req AdaptInjuryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Injury.Description == "" {
		abortWithError(c, http.StatusBadRequest, "Missing injury details")
		return
	}
	userID, _ := getUserIDFromContext(c)
	doc, err := h.manager.AdaptForInjury(c.Request.Context(), userID, *req.Injury)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// CancelInjury resolves active injuries and reverts injury adaptations.
func (h *AIHandler) CancelInjury(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)
	res, err := h.manager.CancelInjury(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":                 "Injury cancelled and program reverted",
		"resolvedInjuries":        res.ResolvedInjuries,
		"removedPersonalizations": res.RemovedPersonalizations,
	})
}

// Reschedule godoc
// @Summary Reschedule the current week after a missed workout
// @Tags AI
// @Accept json
// @Produce json
// @Param body body RescheduleRequest true "Missed workout and constraints"
// @Success 200 {object} domain.ProgramDocument
// @Failure 503 {object} gin.H "AI budget exceeded"
// @Failure 504 {object} gin.H "AI generation timed out"
// @Router /ai/reschedule [post]
func (h *AIHandler) Reschedule(c *gin.Context) {
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	constraints := service.RescheduleConstraints{MaxDurationMinutes: service.DefaultMaxDurationMinutes}
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	userID, _ := getUserIDFromContext(c)
	doc, err := h.manager.RescheduleWorkout(c.Request.Context(), userID, req.MissedWorkoutID, constraints)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *AIHandler) RecommendProgram(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Missing profile")
		return
	}
	programID, err := h.manager.RecommendProgram(c.Request.Context(), *req.Profile)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"programId": programID})
}
