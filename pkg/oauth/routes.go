package oauth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the authorization routes and returns the session
// middleware for the routes that need a token.
func RegisterRoutes(e *echo.Echo, oauthService *Service) *Middleware {
	m := NewMiddleware(oauthService)

	h := &handler{
		oauthService: oauthService,
	}

	e.GET("/authorize", h.authorize, m.Session)
	e.GET("/oauth2callback", h.callback, m.Session)
	e.POST("/logout", h.logout, m.Session)

	return m
}
