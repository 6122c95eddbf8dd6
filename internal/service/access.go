package service

import (
	"strings"

	"smush/internal/domain"
)

// Rutas de la superficie.
const (
	RouteHome                 = "/home"
	RouteMatches              = "/matches"
	RouteInsights             = "/insights"
	RouteProfileEdit          = "/profile/edit"
	RouteAdmin                = "/admin"
	RouteResetPasswordRequest = "/reset-password/request"
	RouteResetPasswordToken   = "/reset-password/token"
)

var loginRequired = map[string]bool{
	RouteMatches:     true,
	RouteInsights:    true,
	RouteProfileEdit: true,
}

// CanAccess decide si session puede ver route. Es una función pura: no
// consulta al servidor ni al reloj.
func CanAccess(route string, session domain.Session) bool {
	route = normalizeRoute(route)
	if route == RouteAdmin || strings.HasPrefix(route, RouteAdmin+"/") {
		return session.User.IsAdmin()
	}
	if loginRequired[route] {
		return session.LoggedIn()
	}
	return true
}

// KnownRoute indica si route corresponde a una página.
func KnownRoute(route string) bool {
	switch normalizeRoute(route) {
	case RouteHome, RouteMatches, RouteInsights, RouteProfileEdit, RouteAdmin,
		RouteResetPasswordRequest, RouteResetPasswordToken:
		return true
	}
	return false
}

func normalizeRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" || route == "/" {
		return RouteHome
	}
	if len(route) > 1 {
		route = strings.TrimSuffix(route, "/")
	}
	return route
}
