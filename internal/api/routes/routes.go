package routes

import (
	"github.com/Corgi239/Speech-Command-Recognition/internal/api/handlers"
	"github.com/Corgi239/Speech-Command-Recognition/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Predict *handlers.PredictHandler
	History *handlers.HistoryHandler
	Model   *handlers.ModelHandler
	WS      *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.GET("/model", d.Model.Info)

	r.POST("/predict/file", d.Predict.PredictFile)
	r.POST("/predict/recording", d.Predict.PredictRecording)

	r.GET("/history", d.History.List)
	r.GET("/history/:prediction_id", d.History.Get)
	r.GET("/history/:prediction_id/similar", d.History.Similar)

	// WebSocket
	r.GET("/ws/recordings/:recording_id", d.WS.RecordingWS)

	// Maintenance routes (JWT, admin only)
	admin := r.Group("/")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	admin.DELETE("/history/:prediction_id", d.History.Delete)
}
