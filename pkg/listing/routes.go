package listing

import (
	"github.com/driveview/driveview/pkg/access"
	"github.com/driveview/driveview/pkg/summaries"
	"github.com/driveview/driveview/pkg/traversal"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers POST /list-files. m is applied to the route; the
// session middleware goes here when the storage needs authorization.
func RegisterRoutes(e *echo.Echo, resolver *access.Resolver, traverser *traversal.Traverser, summariesService *summaries.Service, m ...echo.MiddlewareFunc) {
	h := &handler{
		resolver:         resolver,
		traverser:        traverser,
		summariesService: summariesService,
	}

	e.POST("/list-files", h.list, m...)
}
