package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(correlationMiddleware)
	s.echo.Use(ErrorHandlingMiddleware())

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	launchLimiter := newRateLimiter(10, 20)

	api := s.echo.Group("/api")
	api.POST("/launch", s.handleLaunch, launchLimiter)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.DELETE("/sessions/:id", s.handleEndSession)
	api.POST("/sessions/:id/extend", s.handleExtendSession)
	api.POST("/challenges", s.handleIssueChallenge)
	api.POST("/challenges/:id/verify", s.handleVerifyChallenge)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handleUpdateSettings)
	api.GET("/apps/:package", s.handleGetAppPolicy)
	api.DELETE("/apps/:package/session", s.handleEndAppSession)
	api.PUT("/apps/:package/flags", s.handleSetAppFlags)
	api.GET("/apps/:package/time-limit", s.handleGetAppTimeLimit)
	api.PUT("/apps/:package/time-limit", s.handleSetAppTimeLimit)
	api.DELETE("/apps/:package/time-limit", s.handleClearAppTimeLimit)

	s.echo.GET("/ws/expirations", s.handleExpiryStream)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("Request", attrs...)
			return nil
		},
	})
}
