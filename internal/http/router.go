package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rmi/internal/metrics"
	"rmi/internal/service"
)

// RouterDeps agrupa los handlers y middlewares que arma cmd/api.
type RouterDeps struct {
	Logger      *zap.Logger
	JWT         *service.JWTService
	Users       *UserHandler
	Network     *NetworkHandler
	Chat        *ChatHandler
	State       *StateHandler
	Insights    *InsightHandler
	ChatLimiter *UserRateLimiter
	Metrics     *metrics.Metrics
	MetricsPath string
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(d.Logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.MetricsPath != "" {
		r.GET(d.MetricsPath, gin.WrapH(metrics.Handler()))
	}

	auth := r.Group("/auth")
	auth.POST("/signup", d.Users.SignUp)
	auth.POST("/login", d.Users.Login)
	auth.POST("/refresh", d.Users.RefreshToken)
	auth.POST("/logout", d.Users.Logout)

	api := r.Group("/api", JWTAuthMiddleware(d.JWT))
	api.GET("/me", d.Users.Me)
	api.DELETE("/sessions", d.Users.LogoutAll)

	api.GET("/contacts", d.Network.List)
	api.POST("/contacts", d.Network.Create)
	api.DELETE("/contacts", d.Network.Clear)
	api.POST("/contacts/onboard", d.Network.Onboard)
	api.PUT("/contacts/:id", d.Network.Update)
	api.DELETE("/contacts/:id", d.Network.Delete)
	api.POST("/contacts/:id/move", d.Network.Move)
	api.POST("/contacts/:id/advance", d.Network.Advance)
	api.POST("/contacts/:id/complete", d.Network.Complete)

	api.GET("/messages", d.Chat.History)
	api.POST("/messages", RateLimitMiddleware(d.Logger, d.ChatLimiter, d.Metrics, "chat"), d.Chat.PostMessage)
	api.DELETE("/messages", d.Chat.Clear)

	api.GET("/state", d.State.Get)
	api.PUT("/state/emotion", d.State.SetEmotion)
	api.PUT("/state/settings", d.State.SetSettings)
	api.POST("/state/events", d.State.RecordEvent)
	api.POST("/state/reset", d.State.Reset)

	api.GET("/insights", d.Insights.Snapshot)
	api.POST("/feedback", d.Insights.SubmitFeedback)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
