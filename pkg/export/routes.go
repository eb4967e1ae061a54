package export

import (
	"time"

	"github.com/driveview/driveview/pkg/access"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers POST /export-csv with the given middleware.
func RegisterRoutes(e *echo.Echo, resolver *access.Resolver, assembler *Assembler, m ...echo.MiddlewareFunc) {
	h := &handler{
		resolver:  resolver,
		assembler: assembler,
		now:       time.Now,
	}

	e.POST("/export-csv", h.export, m...)
}
