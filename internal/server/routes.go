package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/influencer-studio/internal/api"
	"github.com/cozy-creator/influencer-studio/internal/api/middleware"
	"github.com/cozy-creator/influencer-studio/internal/app"
)

func (s *Server) SetupRoutes(app *app.App) {
	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.ginEngine.GET("/metrics", gin.WrapH(app.Metrics().Handler()))

	// Providers call back without a user token.
	s.ginEngine.POST("/webhooks/provider", handlerWrapper(app, api.ProviderWebhook))

	apiV1 := s.ginEngine.Group("/api/v1")
	apiV1.Use(handlerWrapper(app, middleware.AuthenticationMiddleware))

	apiV1.POST("/jobs", handlerWrapper(app, api.SubmitJob))
	apiV1.GET("/jobs", handlerWrapper(app, api.ListJobs))
	apiV1.GET("/jobs/:id", handlerWrapper(app, api.GetJob))
	apiV1.GET("/jobs/:id/events", handlerWrapper(app, api.ListJobEvents))

	generate := apiV1.Group("/generate")
	generate.POST("/video/final", handlerWrapper(app, api.SubmitVideoFinal))
	generate.POST("/video/motion", handlerWrapper(app, api.SubmitVideoMotion))
	generate.POST("/shots", handlerWrapper(app, api.SubmitShots))
	generate.POST("/shots/run", handlerWrapper(app, api.RunShot))
	generate.POST("/image", handlerWrapper(app, api.GenerateImage))
	generate.POST("/video/prepare", handlerWrapper(app, api.PrepareVideo))

	apiV1.GET("/characters", handlerWrapper(app, api.ListCharacters))
	apiV1.POST("/characters", handlerWrapper(app, api.CreateCharacter))
	apiV1.GET("/characters/:id", handlerWrapper(app, api.GetCharacter))
	apiV1.PATCH("/characters/:id", handlerWrapper(app, api.UpdateCharacter))
	apiV1.DELETE("/characters/:id", handlerWrapper(app, api.DeleteCharacter))
	apiV1.POST("/characters/:id/video-prompt", handlerWrapper(app, api.GenerateVideoPrompt))

	apiV1.GET("/content-plans", handlerWrapper(app, api.ListContentPlans))
	apiV1.POST("/content-plans", handlerWrapper(app, api.CreateContentPlan))

	apiV1.GET("/media/history", handlerWrapper(app, api.MediaHistory))
	apiV1.PATCH("/media/:id", handlerWrapper(app, api.UpdateMedia))
	apiV1.DELETE("/media/:id", handlerWrapper(app, api.DeleteMedia))

	apiV1.POST("/upload/:category", handlerWrapper(app, api.UploadFile))

	admin := apiV1.Group("/admin", middleware.RequireAdmin)
	admin.POST("/jobs/sweep", handlerWrapper(app, api.SweepJobs))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
