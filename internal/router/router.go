package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/gofiber/fiber/v3/middleware/static"

	"github.com/cursedai/cursed-go/internal/handler"
	"github.com/cursedai/cursed-go/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health   *handler.HealthHandler
	Session  *handler.SessionHandler
	Feed     *handler.FeedHandler
	Rating   *handler.RatingHandler
	Report   *handler.ReportHandler
	Media    *handler.MediaHandler
	Settings *handler.SettingsHandler
	Admin    *handler.AdminHandler
	Export   *handler.ExportHandler
}

// Options carries the non-handler dependencies of the route table.
type Options struct {
	CORSOrigins string
	Auth        *middleware.Auth
	// MediaRoot is served under /media when set.
	MediaRoot string
	// Metrics adds request instrumentation and /metrics when set.
	Metrics *handler.Metrics
	// Limiters enforces route quotas; nil keeps counters in process memory.
	Limiters *middleware.Limiters
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(requestid.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(opts.CORSOrigins))
	if opts.Metrics != nil {
		app.Use(opts.Metrics.Middleware())
		app.Get("/metrics", opts.Metrics.Handler())
	}

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)

	if opts.MediaRoot != "" {
		app.Get("/media*", static.New(opts.MediaRoot))
	}

	limits := opts.Limiters
	if limits == nil {
		limits = middleware.NewLimiters(nil)
	}

	api := app.Group("/api")

	// Anonymous viewer routes
	api.Post("/sessions", limits.For(middleware.SessionLimit), h.Session.Create)
	api.Post("/sessions/:sessionId/views", limits.For(middleware.FeedLimit), h.Session.RecordView)
	api.Post("/events", limits.For(middleware.FeedLimit), h.Session.Event)
	api.Post("/feedback", limits.For(middleware.ReportLimit), h.Session.Feedback)

	feedLimit := limits.For(middleware.FeedLimit)
	api.Get("/feed", feedLimit, h.Feed.Feed)
	api.Get("/graveyard", feedLimit, h.Feed.Graveyard)
	api.Get("/media/:mediaId", feedLimit, h.Feed.Item)
	api.Get("/settings", h.Settings.Public)

	api.Post("/ratings", limits.For(middleware.RatingLimit), h.Rating.Submit)
	api.Post("/reports", limits.For(middleware.ReportLimit), h.Report.Create)

	// Signed-in routes
	user := opts.Auth.RequireUser()
	api.Post("/media", user, limits.For(middleware.UploadLimit), h.Media.Upload)
	api.Delete("/account", user, h.Admin.DeleteAccount)

	// Admin routes
	admin := api.Group("/admin", opts.Auth.RequireAdmin())

	admin.Get("/reports", h.Report.List)
	admin.Post("/reports/:reportId/resolve", h.Report.Resolve)

	admin.Get("/media", h.Media.List)
	admin.Post("/media/batch", h.Media.Batch)
	admin.Patch("/media/:mediaId", h.Media.Update)

	admin.Get("/settings", h.Settings.List)
	admin.Put("/settings/:key", h.Settings.Update)

	admin.Post("/wipe", h.Admin.Wipe)
	admin.Post("/export", limits.For(middleware.ExportLimit), h.Export.Export)

	admin.Get("/users", h.Admin.Users)
	admin.Post("/users", h.Admin.AddUser)
	admin.Delete("/users/:userId", h.Admin.RemoveUser)

	admin.Get("/feedback", h.Session.ListFeedback)
}
