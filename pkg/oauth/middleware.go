package oauth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "driveview_session"

	contextKeySessionID = "session_id"
)

type Middleware struct {
	oauthService *Service
}

func NewMiddleware(oauthService *Service) *Middleware {
	return &Middleware{
		oauthService: oauthService,
	}
}

// Session resolves the session named by the cookie and stores its id in the
// context. A missing, invalid or stale cookie starts a new session.
func (m *Middleware) Session(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		cookie, err := c.Cookie(CookieName)
		if err == nil && cookie.Value != "" {
			id, err := m.oauthService.ValidateToken(cookie.Value)
			if err == nil {
				if _, err := m.oauthService.GetSession(ctx, id); err == nil {
					c.Set(contextKeySessionID, id)
					return next(c)
				}
			}
		}

		session, err := m.oauthService.CreateSession(ctx)
		if err != nil {
			return err
		}
		token, err := m.oauthService.GenerateToken(session.ID)
		if err != nil {
			return errors.WithStack(err)
		}
		setSessionCookie(c, token, TokenExpiry)
		c.Set(contextKeySessionID, session.ID)

		return next(c)
	}
}

// SessionIDFromContext returns the id stored by Session, or "" outside of it.
func SessionIDFromContext(c echo.Context) string {
	id, _ := c.Get(contextKeySessionID).(string)
	return id
}

func setSessionCookie(c echo.Context, value string, maxAge time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}
