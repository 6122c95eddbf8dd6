package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smush/internal/domain"
	"smush/internal/service"
)

const sessionKey = "smush_session"

// SessionSource entrega la sesión vigente.
type SessionSource interface {
	Session() domain.Session
}

// PageGuard aplica CanAccess a la ruta de la página. Una ruta denegada
// redirige a /home.
func PageGuard(sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Session()
		if !service.CanAccess(c.Request.URL.Path, session) {
			c.Redirect(http.StatusFound, service.RouteHome)
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// ActionGuard protege un grupo de acciones con los permisos de route.
func ActionGuard(sessions SessionSource, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Session()
		if !service.CanAccess(route, session) {
			status := http.StatusForbidden
			if !session.LoggedIn() {
				status = http.StatusUnauthorized
			}
			c.JSON(status, gin.H{"error": "access denied"})
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// GetSession obtiene la sesión que dejó el guard en el contexto.
func GetSession(c *gin.Context) (domain.Session, bool) {
	val, ok := c.Get(sessionKey)
	if !ok {
		return domain.Session{}, false
	}
	session, ok := val.(domain.Session)
	return session, ok
}
