package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studycycle/backend/internal/handler"
	"studycycle/backend/internal/middleware"
	"studycycle/backend/internal/service"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Subject  *handler.SubjectHandler
	Settings *handler.SettingsHandler
	Cycle    *handler.CycleHandler
	Session  *handler.SessionHandler
}

func New(authService *service.AuthService, h Handlers, corsOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService))

	protected.GET("/auth/me", h.Auth.Me)

	subjects := protected.Group("/subjects")
	subjects.GET("", h.Subject.List)
	subjects.POST("", h.Subject.Create)
	subjects.PATCH("/:id", h.Subject.Update)
	subjects.DELETE("/:id", h.Subject.Delete)

	protected.GET("/settings", h.Settings.Get)
	protected.PUT("/settings", h.Settings.Update)

	cycle := protected.Group("/cycle")
	cycle.GET("/state", h.Cycle.GetState)
	cycle.GET("/plan", h.Cycle.GetPlan)
	cycle.GET("/events", h.Cycle.Events)
	cycle.POST("/start", h.Cycle.Start)
	cycle.POST("/pause", h.Cycle.Pause)
	cycle.POST("/resume", h.Cycle.Resume)
	cycle.POST("/advance", h.Cycle.Advance)
	cycle.POST("/skip", h.Cycle.Skip)
	cycle.POST("/previous", h.Cycle.Previous)
	cycle.POST("/reset-block", h.Cycle.ResetBlock)
	cycle.POST("/reset-subject", h.Cycle.ResetSubject)
	cycle.POST("/reset-cycle", h.Cycle.ResetCycle)
	cycle.POST("/resync", h.Cycle.Resync)
	cycle.POST("/records/retry", h.Cycle.RetryRecords)

	protected.GET("/sessions/history", h.Session.GetHistory)

	return engine
}
