package oauth

import (
	"net/http"
	"time"

	"github.com/driveview/driveview/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// callbackPage tells the window that opened the consent page that it can
// retry, then closes itself.
const callbackPage = `<html><head><script>
window.opener.postMessage('authentication_complete','*');
window.close();
</script></head><body>Authentication complete.</body></html>`

type handler struct {
	oauthService *Service
}

func (h *handler) authorize(c echo.Context) error {
	ctx := c.Request().Context()

	authURL, err := h.oauthService.BeginAuthorization(ctx, SessionIDFromContext(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, AuthorizeResponse{AuthURL: authURL}))
}

// callback reads the query directly: Google adds parameters (scope,
// authuser, prompt) that the strict binder would reject.
func (h *handler) callback(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	if denied := c.QueryParam("error"); denied != "" {
		log.Warn("authorization denied", logger.Data{"reason": denied})
		return c.String(http.StatusBadRequest, "Error: "+denied)
	}

	err := h.oauthService.CompleteAuthorization(ctx, SessionIDFromContext(c), c.QueryParam("state"), c.QueryParam("code"))
	if err != nil {
		log.Err(err).Error("oauth callback failed")
		msg := err.Error()
		var ec *errcodes.Error
		if errors.As(err, &ec) {
			msg = ec.Message
		}
		return c.String(http.StatusBadRequest, "Error: "+msg)
	}

	return c.HTML(http.StatusOK, callbackPage)
}

func (h *handler) logout(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.oauthService.DeleteSession(ctx, SessionIDFromContext(c)); err != nil {
		return err
	}
	setSessionCookie(c, "", -time.Second)

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
