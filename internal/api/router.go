package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/yamdb/yamdb-api/docs"
	"github.com/yamdb/yamdb-api/internal/api/handler"
	"github.com/yamdb/yamdb-api/internal/api/middleware"
	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// Services bundles the core services the HTTP layer exposes.
type Services struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Catalog  ports.CatalogService
	Reviews  ports.ReviewService
	Comments ports.CommentService
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, readiness *handler.HealthDependenciesHandler, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddleware("yamdb"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(svc.Auth)
	userHandler := handler.NewUserHandler(svc.Users)
	catalogHandler := handler.NewCatalogHandler(svc.Catalog)
	reviewHandler := handler.NewReviewHandler(svc.Reviews)
	commentHandler := handler.NewCommentHandler(svc.Comments)

	v1 := e.Group("/v1", middleware.Auth(svc.Auth))
	requireAuth := middleware.RequireAuth()

	// --- Auth routes ---
	v1.POST("/auth/signup", authHandler.Signup)
	v1.POST("/auth/token", authHandler.Token)

	// --- Users ---
	v1.GET("/users/me", userHandler.Me, requireAuth)
	v1.PATCH("/users/me", userHandler.UpdateMe, requireAuth)
	v1.DELETE("/users/me", userHandler.DeleteMe, requireAuth)

	admin := middleware.Policy(authz.VerbRead, authz.UserAdmin())
	v1.GET("/users", userHandler.List, admin)
	v1.POST("/users", userHandler.Create, admin)
	v1.GET("/users/:username", userHandler.Get, admin)
	v1.PATCH("/users/:username", userHandler.Update, admin)
	v1.DELETE("/users/:username", userHandler.Delete, admin)

	// --- Catalogue ---
	createCatalog := middleware.Policy(authz.VerbCreate, authz.Catalog())
	updateCatalog := middleware.Policy(authz.VerbUpdate, authz.Catalog())
	deleteCatalog := middleware.Policy(authz.VerbDelete, authz.Catalog())

	v1.GET("/categories", catalogHandler.ListCategories)
	v1.POST("/categories", catalogHandler.CreateCategory, createCatalog)
	v1.DELETE("/categories/:slug", catalogHandler.DeleteCategory, deleteCatalog)

	v1.GET("/genres", catalogHandler.ListGenres)
	v1.POST("/genres", catalogHandler.CreateGenre, createCatalog)
	v1.DELETE("/genres/:slug", catalogHandler.DeleteGenre, deleteCatalog)

	v1.GET("/titles", catalogHandler.ListWorks)
	v1.POST("/titles", catalogHandler.CreateWork, createCatalog)
	v1.GET("/titles/:title_id", catalogHandler.GetWork)
	v1.PATCH("/titles/:title_id", catalogHandler.UpdateWork, updateCatalog)
	v1.DELETE("/titles/:title_id", catalogHandler.DeleteWork, deleteCatalog)

	// --- Reviews and comments (ownership checked in the services) ---
	reviews := v1.Group("/titles/:title_id/reviews")
	reviews.GET("", reviewHandler.List)
	reviews.POST("", reviewHandler.Create, requireAuth)
	reviews.GET("/:review_id", reviewHandler.Get)
	reviews.PATCH("/:review_id", reviewHandler.Update, requireAuth)
	reviews.DELETE("/:review_id", reviewHandler.Delete, requireAuth)

	comments := reviews.Group("/:review_id/comments")
	comments.GET("", commentHandler.List)
	comments.POST("", commentHandler.Create, requireAuth)
	comments.GET("/:comment_id", commentHandler.Get)
	comments.PATCH("/:comment_id", commentHandler.Update, requireAuth)
	comments.DELETE("/:comment_id", commentHandler.Delete, requireAuth)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	e.GET("/health", healthHandler.Liveness) // liveness  – is the process alive?
	if readiness != nil {
		e.GET("/health/ready", readiness.Readiness) // readiness – are dependencies up?
	}
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger logs one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= 500 {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
