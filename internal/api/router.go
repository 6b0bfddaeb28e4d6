package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/healthtech/clinic-scheduler/docs"
	"github.com/healthtech/clinic-scheduler/internal/api/handler"
	"github.com/healthtech/clinic-scheduler/internal/api/middleware"
	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

// Dependencies is everything the router needs to serve requests.
type Dependencies struct {
	Logger       zerolog.Logger
	JWTSecret    string
	// CORSOrigins are the browser origins allowed to call the API. Empty allows any.
	CORSOrigins  []string
	Auth         ports.AuthService
	Appointments ports.AppointmentService
	Users        ports.UserService
	// RateLimiter guards the public auth endpoints. Nil disables it.
	RateLimiter  *middleware.RateLimiter
	HealthChecks []handler.DependencyCheck
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(cors(d.CORSOrigins))
	e.Use(echoprometheus.NewMiddleware("clinic"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	appointmentHandler := handler.NewAppointmentHandler(d.Appointments)
	userHandler := handler.NewUserHandler(d.Users)
	healthHandler := handler.NewHealthHandler(d.HealthChecks...)

	authMW := middleware.Auth(d.JWTSecret)
	public := []echo.MiddlewareFunc{}
	if d.RateLimiter != nil {
		public = append(public, middleware.RateLimit(d.RateLimiter))
	}

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	apiGroup := e.Group("/api")

	// --- Auth ---
	auth := apiGroup.Group("/auth")
	auth.POST("/register", authHandler.Register, public...)
	auth.POST("/login", authHandler.Login, public...)
	auth.GET("/me", authHandler.Me, authMW)

	// --- Appointments ---
	appointments := apiGroup.Group("/appointments", authMW)
	appointments.GET("", appointmentHandler.List)
	appointments.POST("", appointmentHandler.Create)
	appointments.GET("/:id", appointmentHandler.Get)
	appointments.PATCH("/:id", appointmentHandler.Update)
	appointments.DELETE("/:id", appointmentHandler.Delete)

	// --- Users and providers ---
	users := apiGroup.Group("/users")
	users.GET("/providers", userHandler.ListProviders)
	users.GET("/providers/:id/availability", appointmentHandler.Availability)
	users.GET("", userHandler.ListUsers, authMW, middleware.RBAC(domain.RoleAdmin))
	users.GET("/:id", userHandler.GetUser, authMW)

	provider := apiGroup.Group("/provider", authMW, middleware.RBAC(domain.RoleProvider, domain.RoleAdmin))
	provider.GET("/patients/:id", userHandler.PatientSummary)

	// --- Admin ---
	admin := apiGroup.Group("/admin", authMW, middleware.RBAC(domain.RoleAdmin))
	admin.GET("/stats", userHandler.Stats)
	admin.GET("/users", userHandler.RecentUsers)

	return e
}

func cors(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		MaxAge:       600,
	})
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
