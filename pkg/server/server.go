package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/driveview/driveview/pkg/access"
	"github.com/driveview/driveview/pkg/binder"
	"github.com/driveview/driveview/pkg/config"
	"github.com/driveview/driveview/pkg/errcodes"
	"github.com/driveview/driveview/pkg/export"
	"github.com/driveview/driveview/pkg/listing"
	"github.com/driveview/driveview/pkg/metrics"
	"github.com/driveview/driveview/pkg/oauth"
	"github.com/driveview/driveview/pkg/summaries"
	"github.com/driveview/driveview/pkg/summarycache"
	"github.com/driveview/driveview/pkg/traversal"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(ctx context.Context, cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e, err := newEcho(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(ctx context.Context, cfg *config.Config, db *bun.DB) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	m := metrics.New()
	metrics.RegisterRoutes(e, m)

	opener, err := newOpener(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Only Google Drive needs per-user consent. The other backends carry
	// their own credentials, so no session is attached to requests.
	var resolver *access.Resolver
	var sessionMiddleware []echo.MiddlewareFunc
	if opener.RequiresAuthorization() {
		conf, err := oauth.NewConfig(cfg)
		if err != nil {
			return nil, err
		}
		oauthService := oauth.NewService(db, conf, cfg.SessionSecret)
		mw := oauth.RegisterRoutes(e, oauthService)
		sessionMiddleware = append(sessionMiddleware, mw.Session)
		resolver = access.NewResolver(opener, oauthService)
	} else {
		resolver = access.NewResolver(opener, nil)
	}

	recursive, err := newSummarizer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cacheOpts := summarycache.Options{
		Capacity: cfg.SummaryCacheCapacity,
		TTL:      cfg.SummaryCacheTTL,
		Metrics:  m,
	}
	if cfg.SummaryCachePersist {
		cacheOpts.Store = summarycache.NewDBStore(db)
	}

	summariesService := summaries.NewService(summaries.Options{
		Cache:           summarycache.New(cacheOpts),
		Summarizer:      recursive,
		Timeout:         cfg.SummaryTimeout,
		MaxContentBytes: cfg.MaxContentBytes,
		Metrics:         m,
	})
	traverser := traversal.New(m)

	listing.RegisterRoutes(e, resolver, traverser, summariesService, sessionMiddleware...)
	export.RegisterRoutes(e, resolver, export.NewAssembler(traverser, summariesService), sessionMiddleware...)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
