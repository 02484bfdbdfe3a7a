package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hauke92/mindgate/internal/app"
	"github.com/hauke92/mindgate/internal/challenge"
	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/platform/config"
)

type appService interface {
	RequestLaunch(ctx context.Context, req domain.LaunchRequest) (domain.LaunchResult, error)
	ActiveSessions(ctx context.Context) ([]app.SessionView, error)
	GetSession(ctx context.Context, id int64) (app.SessionView, error)
	EndSession(ctx context.Context, id int64) error
	EndSessionForApp(ctx context.Context, pkg string) error
	ExtendSession(ctx context.Context, id int64, extra time.Duration, challengeID string, answer int) (app.SessionView, error)
	IssueChallenge(ctx context.Context, pkg string) (challenge.Challenge, error)
	VerifyChallenge(id string, answer int) (bool, error)
	Settings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)
	AppPolicy(ctx context.Context, pkg string) (domain.AppPolicy, error)
	SetAppFlags(ctx context.Context, pkg string, distracting, hidden bool) error
	AppTimeLimitInfo(ctx context.Context, pkg string) (domain.TimeLimitInfo, error)
	UpdateAppTimeLimit(ctx context.Context, pkg string, minutes int) error
	ClearAppTimeLimit(ctx context.Context, pkg string) error
}

// expiryHub is the connection registry behind /ws/expirations.
type expiryHub interface {
	Register(conn *websocket.Conn) error
	Unregister(conn *websocket.Conn)
	ClientCount() int
}

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app appService
	hub expiryHub

	upgrader websocket.Upgrader

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, appSvc appService, hub expiryHub, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:   e,
		config: cfg,
		app:    appSvc,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     CheckWebSocketOrigin,
		},
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
