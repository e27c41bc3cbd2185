package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/service"
)

// Services bundles what the HTTP layer depends on.
type Services struct {
	Auth            service.AuthService
	Programs        service.ProgramService
	Coach           service.CoachService
	Training        service.TrainingService
	Personalization service.PersonalizationManager
}

func SetupRoutes(router *gin.Engine, jwtSecret string, services Services, logger *slog.Logger) {
	authHandler := NewAuthHandler(services.Auth, logger)
	programHandler := NewProgramHandler(services.Programs, logger)
	coachHandler := NewCoachHandler(services.Coach, logger)
	trainingHandler := NewTrainingHandler(services.Training, logger)
	aiHandler := NewAIHandler(services.Personalization, logger)

	router.Use(RequestLogger(logger))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", authHandler.Me)

		protected.GET("/training/week", trainingHandler.GetWeek)

		// --- Personalization flows, any authenticated user ---
		aiGroup := protected.Group("/ai")
		{
			aiGroup.POST("/adapt-injury", aiHandler.AdaptInjury)
			aiGroup.POST("/cancel-injury", aiHandler.CancelInjury)
			aiGroup.POST("/reschedule", aiHandler.Reschedule)
			aiGroup.POST("/recommend-program", aiHandler.RecommendProgram)
		}

		// --- Coach only ---
		programGroup := protected.Group("/programs")
		programGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			programGroup.GET("", programHandler.ListPrograms)
			programGroup.POST("", programHandler.CreateProgram)
			programGroup.GET("/:id", programHandler.GetProgram)
			programGroup.PUT("/:id", programHandler.UpdateProgram)
			programGroup.DELETE("/:id", programHandler.DeleteProgram)
			programGroup.GET("/:id/weeks/:week/export", programHandler.ExportWeek)
		}

		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			coachGroup.GET("/athletes", coachHandler.ListAthletes)
			coachGroup.GET("/search", coachHandler.SearchAthletes)
			coachGroup.POST("/athletes/:id", coachHandler.AddAthlete)
			coachGroup.DELETE("/athletes/:id", coachHandler.RemoveAthlete)
			coachGroup.POST("/assign", coachHandler.AssignProgram)
			coachGroup.POST("/unassign", coachHandler.UnassignProgram)
		}
	}
}
