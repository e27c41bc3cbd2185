package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/service"
)

// CoachHandler serves athlete management and program assignment.
type CoachHandler struct {
	coachService service.CoachService
	logger       *slog.Logger
}

func NewCoachHandler(coachService service.CoachService, logger *slog.Logger) *CoachHandler {
	return &CoachHandler{coachService: coachService, logger: logger}
}

type AssignmentRequest struct {
	AthleteID string `json:"athleteId" binding:"required"`
	ProgramID string `json:"programId" binding:"required"`
}

// ListAthletes godoc
// @Summary List the coach's athletes with their assigned programs
// @Tags Coach
// @Produce json
// @Success 200 {array} service.AthleteSummary
// @Router /coach/athletes [get]
func (h *CoachHandler) ListAthletes(c *gin.Context) {
	coachID, _ := getUserIDFromContext(c)
	athletes, err := h.coachService.ListAthletes(c.Request.Context(), coachID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, athletes)
}

// SearchAthletes godoc
// @Summary Search athletes without a coach by name
// @Tags Coach
// @Param query query string false "Name fragment"
// @Success 200 {array} UserResponse
// @Router /coach/search [get]
func (h *CoachHandler) SearchAthletes(c *gin.Context) {
	users, err := h.coachService.SearchAthletes(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = MapUserToResponse(&users[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *CoachHandler) AddAthlete(c *gin.Context) {
	coachID, _ := getUserIDFromContext(c)
	if err := h.coachService.AddAthlete(c.Request.Context(), coachID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Athlete added successfully"})
}

func (h *CoachHandler) RemoveAthlete(c *gin.Context) {
	coachID, _ := getUserIDFromContext(c)
	if err := h.coachService.RemoveAthlete(c.Request.Context(), coachID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Athlete removed successfully"})
}

// AssignProgram godoc
// @Summary Enroll a managed athlete in a program
// @Description Assigning a program twice is answered with 200 "Program already assigned".
// @Tags Coach
// @Accept json
// @Param assignment body AssignmentRequest true "Athlete and program"
// @Success 200 {object} gin.H
// @Failure 404 {object} gin.H "Athlete not managed or program not found"
// @Router /coach/assign [post]
func (h *CoachHandler) AssignProgram(c *gin.Context) {
	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	coachID, _ := getUserIDFromContext(c)
	outcome, err := h.coachService.AssignProgram(c.Request.Context(), coachID, req.AthleteID, req.ProgramID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if outcome == service.AlreadyAssigned {
		c.JSON(http.StatusOK, gin.H{"message": "Program already assigned"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Program assigned successfully"})
}

func (h *CoachHandler) UnassignProgram(c *gin.Context) {
	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	coachID, _ := getUserIDFromContext(c)
	if err := h.coachService.UnassignProgram(c.Request.Context(), coachID, req.AthleteID, req.ProgramID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Program unassigned successfully"})
}
