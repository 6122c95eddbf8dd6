package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smush/internal/service"
)

// NewRouter configura el router de Gin con middlewares, páginas y acciones.
func NewRouter(logger *zap.Logger, sessions SessionSource, h *Handlers) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, service.RouteHome) })

	pages := r.Group("", PageGuard(sessions))
	pages.GET(service.RouteHome, h.Home)
	pages.GET(service.RouteMatches, h.Matches)
	pages.GET(service.RouteInsights, h.Insights)
	pages.GET(service.RouteProfileEdit, h.ProfileEdit)
	pages.GET(service.RouteAdmin, h.Admin)
	pages.GET(service.RouteResetPasswordRequest, h.ResetPasswordRequest)
	pages.GET(service.RouteResetPasswordToken, h.ResetPasswordToken)

	search := r.Group("/search")
	search.GET("/characters", h.SearchCharacters)
	search.GET("/tags", h.SearchTags)

	actions := r.Group("/actions")
	actions.POST("/login", h.Login)
	actions.POST("/logout", h.Logout)
	actions.POST("/register", h.Register)
	actions.POST("/reset-password/request", h.RequestPasswordReset)
	actions.POST("/reset-password/token", h.ResetPassword)

	matches := actions.Group("/matches", ActionGuard(sessions, service.RouteMatches))
	matches.POST("", h.CreateMatch)
	matches.POST("/update", h.UpdateMatch)
	matches.POST("/delete", h.DeleteMatch)

	profile := actions.Group("/profile", ActionGuard(sessions, service.RouteProfileEdit))
	profile.POST("", h.UpdateProfile)
	profile.POST("/characters", h.AddUserCharacter)
	profile.POST("/characters/update", h.UpdateUserCharacter)
	profile.POST("/characters/delete", h.DeleteUserCharacter)
	profile.POST("/characters/default", h.SetDefaultUserCharacter)

	admin := actions.Group("/admin", ActionGuard(sessions, service.RouteAdmin))
	admin.POST("/tags", h.SaveTag)
	admin.POST("/tags/delete", h.DeleteTag)
	admin.POST("/characters", h.SaveCharacter)
	admin.POST("/characters/delete", h.DeleteCharacter)
	admin.POST("/users/delete", h.DeleteUser)

	r.NoRoute(h.NotFound)

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
