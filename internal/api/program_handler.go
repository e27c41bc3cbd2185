package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/export"
	"fitcoach/backend/internal/service"
)

// ProgramHandler serves the coach's program CRUD and exports.
type ProgramHandler struct {
	programService service.ProgramService
	logger         *slog.Logger
}

func NewProgramHandler(programService service.ProgramService, logger *slog.Logger) *ProgramHandler {
	return &ProgramHandler{programService: programService, logger: logger}
}

// ListPrograms godoc
// @Summary List the coach's programs, most recently edited first
// @Tags Programs
// @Produce json
// @Success 200 {array} domain.Program
// @Router /programs [get]
func (h *ProgramHandler) ListPrograms(c *gin.Context) {
	coachID, _ := getUserIDFromContext(c)
	programs, err := h.programService.List(c.Request.Context(), coachID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, programs)
}

// GetProgram godoc
// @Summary Get a program with its days, blocks and exercises
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} service.ProgramDetail
// @Failure 404 {object} gin.H "Program not found"
// @Router /programs/{id} [get]
func (h *ProgramHandler) GetProgram(c *gin.Context) {
	coachID, _ := getUserIDFromContext(c)
	program, err := h.programService.Get(c.Request.Context(), coachID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// CreateProgram godoc
// @Summary Create a program with its full structure
// @Tags Programs
// @Accept json
// @Produce json
// @Param program body service.ProgramInput true "Program"
// @Success 201 {object} service.ProgramDetail
// @Failure 400 {object} gin.H "Validation error or duplicate title"
// @Router /programs [post]
func (h *ProgramHandler) CreateProgram(c *gin.Context) {
	var req service.ProgramInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	coachID, _ := getUserIDFromContext(c)
	program, err := h.programService.Create(c.Request.Context(), coachID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, program)
}

// UpdateProgram replaces metadata and structure of a program.
func (h *ProgramHandler) UpdateProgram(c *gin.Context) {
	var req service.ProgramInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	coachID, _ := getUserIDFromContext(c)
	program, err := h.programService.Update(c.Request.Context(), coachID, c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *ProgramHandler) DeleteProgram(c *gin.Context) {
	coachID, _ := getUserIDFromContext(c)
	if err := h.programService.Delete(c.Request.Context(), coachID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Program deleted successfully"})
}

// ExportWeek godoc
// @Summary Export one program week as an xlsx workbook
// @Description Returns a presigned download URL when object storage is configured, the file otherwise.
// @Tags Programs
// @Param id path string true "Program ID"
// @Param week path int true "Week number"
// @Success 200 {object} domain.ProgramExport
// @Router /programs/{id}/weeks/{week}/export [get]
func (h *ProgramHandler) ExportWeek(c *gin.Context) {
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Week must be a number")
		return
	}
	coachID, _ := getUserIDFromContext(c)
	res, err := h.programService.ExportWeek(c.Request.Context(), coachID, c.Param("id"), week)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if res.Export != nil {
		c.JSON(http.StatusOK, res.Export)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.FileName))
	c.Data(http.StatusOK, export.ContentType, res.Workbook.Bytes())
}
