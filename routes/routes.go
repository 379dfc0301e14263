package routes

import (
	"net/http"
	"time"

	"meetsync/handlers"
	"meetsync/middleware"
	"meetsync/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterAssistantRoutes registers the conversational scheduling endpoints.
func RegisterAssistantRoutes(r *gin.Engine, ah *handlers.AssistantHandler) {
	api := r.Group("/api/assistant")
	{
		// Session creation is public; it issues the token the rest require.
		api.POST("/session", ah.StartSessionHandler)

		protected := api.Group("")
		protected.Use(middleware.ClientAuthMiddleware())
		protected.POST("/session/:sessionID/turn", ah.TurnHandler)
		protected.DELETE("/session/:sessionID", ah.CancelSessionHandler)
		protected.POST("/stt", handlers.STTHandler)
	}
}

// RegisterHealthRoute registers liveness and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/healthz", utils.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes wires up global middleware and every endpoint group.
func RegisterRoutes(r *gin.Engine, ah *handlers.AssistantHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterAssistantRoutes(r, ah)
}
